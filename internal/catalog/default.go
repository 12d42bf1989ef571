package catalog

// Default returns the built-in course catalog.
func Default() *Catalog {
	return MustNew(defaultCategories())
}

func defaultCategories() []Category {
	return []Category{
		{
			Name: "ofimatica",
			Courses: []Course{
				{Name: "microsoft word basico", Price: "$50", Link: "https://tucurso.com/word-basico"},
				{Name: "excel basico", Price: "$80", Link: "https://tucurso.com/excel-basico"},
				{Name: "excel intermedio", Price: "$80", Link: "https://tucurso.com/excel-intermedio"},
				{Name: "excel avanzado", Price: "$80", Link: "https://tucurso.com/excel-avanzado"},
				{Name: "powerpoint para presentaciones", Price: "$65", Link: "https://tucurso.com/powerpoint"},
			},
		},
		{
			Name: "programacion",
			Courses: []Course{
				{Name: "python basico", Price: "$100", Link: "https://tucurso.com/python-basico"},
				{Name: "python intermedio", Price: "$100", Link: "https://tucurso.com/python-intermedio"},
				{Name: "python avanzado", Price: "$100", Link: "https://tucurso.com/python-avanzado"},
				{Name: "desarrollo web con javascript", Price: "$150", Link: "https://tucurso.com/js-web"},
				{Name: "bases de datos sql", Price: "$100", Link: "https://tucurso.com/sql-db"},
				{Name: "c# basico", Price: "$100", Link: "https://tucurso.com/csharp-basico"},
				{Name: "c# intermedio", Price: "$100", Link: "https://tucurso.com/csharp-intermedio"},
				{Name: "c# avanzado", Price: "$100", Link: "https://tucurso.com/csharp-avanzado"},
			},
		},
		{
			Name: "diseno grafico",
			Courses: []Course{
				{Name: "photoshop basico", Price: "$90", Link: "https://tucurso.com/photoshop-basico"},
				{Name: "illustrator", Price: "$95", Link: "https://tucurso.com/illustrator"},
			},
		},
		{
			Name: "edicion de video",
			Courses: []Course{
				{Name: "adobe premiere", Price: "$90", Link: "https://tucurso.com/premier"},
				{Name: "after effects", Price: "$90", Link: "https://tucurso.com/after-effects"},
			},
		},
		{
			Name: "videojuegos",
			Courses: []Course{
				{Name: "unity 2d", Price: "$90", Link: "https://tucurso.com/unity2d"},
				{Name: "unity 3d", Price: "$90", Link: "https://tucurso.com/unity3d"},
				{Name: "godot basico", Price: "$90", Link: "https://tucurso.com/godot-basico"},
				{Name: "godot avanzado", Price: "$90", Link: "https://tucurso.com/godot-avanzado"},
			},
		},
	}
}

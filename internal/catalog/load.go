package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog document.
type File struct {
	Categories []Category `json:"categories" yaml:"categories" validate:"required,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Prices are display strings such as "$90" or "€12,50".
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if s == "" {
			return false
		}
		return strings.ContainsAny(s, "0123456789")
	})
	return v
}

// Validate checks a catalog document field by field.
func (f *File) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(errs...)
}

// Parse decodes a catalog document. YAML is a superset of JSON, but .json
// files go through encoding/json for stricter errors.
func Parse(data []byte, ext string) (*Catalog, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return New(f.Categories)
}

// LoadFile reads a catalog from a .yml, .yaml or .json file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
)

//go:embed diseases.yaml
var defaultDiseases []byte

// Catalog справочник болезней в порядке выходов модели.
type Catalog struct {
	labels   []string
	diseases map[string]entity.Disease
}

type catalogFile struct {
	Diseases []entity.Disease `yaml:"diseases"`
}

// Default возвращает встроенный справочник для томатов.
func Default() *Catalog {
	c, err := Parse(defaultDiseases)
	if err != nil {
		panic(fmt.Sprintf("embedded disease catalog: %v", err))
	}
	return c
}

// LoadFile читает справочник из YAML-файла; при пустом пути встроенный справочник.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse разбирает и проверяет справочник.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Diseases) == 0 {
		return nil, errors.New("catalog has no diseases")
	}

	c := &Catalog{
		labels:   make([]string, 0, len(f.Diseases)),
		diseases: make(map[string]entity.Disease, len(f.Diseases)),
	}
	for i, d := range f.Diseases {
		d.Label = strings.TrimSpace(d.Label)
		if d.Label == "" {
			return nil, fmt.Errorf("disease #%d has no label", i)
		}
		if _, dup := c.diseases[d.Label]; dup {
			return nil, fmt.Errorf("duplicate label %q", d.Label)
		}
		if d.Info == "" || d.Treatment == "" || d.Spray == "" {
			return nil, fmt.Errorf("disease %q must have info, treatment and spray", d.Label)
		}
		c.labels = append(c.labels, d.Label)
		c.diseases[d.Label] = d
	}

	return c, nil
}

// Labels возвращает метки в порядке выходов модели.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Describe возвращает описание болезни по метке.
func (c *Catalog) Describe(label string) (entity.Disease, bool) {
	d, ok := c.diseases[label]
	return d, ok
}

var _ port.DiseaseDescriber = (*Catalog)(nil)

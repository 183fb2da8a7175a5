package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"record-linkage/internal/linkage/model"
)

// LoadFields читает YAML со списком полей. Пустой путь: поле sss по умолчанию.
//
//	- field: sss
//	  column: supplier_name|Наименование
//	  type: String
//	  has_missing: true
func LoadFields(path string) ([]model.FieldSpec, error) {
	if path == "" {
		return model.DefaultFields(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read fields file %s", path)
	}
	return ParseFields(b, path)
}

// ParseFields разбирает YAML; неизвестные ключи и типы: ErrConfiguration.
func ParseFields(b []byte, path string) ([]model.FieldSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var fields []model.FieldSpec
	if err := dec.Decode(&fields); err != nil {
		return nil, model.NewError(model.ErrConfiguration, "fields", path, err)
	}
	if err := model.ValidateFields(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

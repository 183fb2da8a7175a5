package training

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"record-linkage/internal/linkage/blocking"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/linkage/scoring"
)

// Settings is what a finished training pass leaves behind: the fitted
// classifier and the blocking rules learned with it.
type Settings struct {
	Model *scoring.Model
	Rules []blocking.Rule
}

// The settings file is settingsMagic, a big-endian CRC-32 of the payload
// and the gob-encoded payload.
const settingsMagic = "RLSETTINGS/1\n"

type settingsPayload struct {
	Fields  []fieldPayload
	Rules   []blocking.Rule
	Weights []float64
	Bias    float64
}

// fieldPayload stores the resolved strip and split sets. gob drops zero
// values, so a pointer to "" would come back as nil.
type fieldPayload struct {
	Name       string
	Kind       model.Kind
	HasMissing bool
	Strip      string
	Split      string
}

func encodeFields(fields []model.FieldSpec) []fieldPayload {
	out := make([]fieldPayload, len(fields))
	for i, f := range fields {
		out[i] = fieldPayload{Name: f.Name, Kind: f.Kind, HasMissing: f.HasMissing, Strip: f.StripChars(), Split: f.SplitChars()}
	}
	return out
}

func decodeFields(in []fieldPayload) []model.FieldSpec {
	out := make([]model.FieldSpec, len(in))
	for i, f := range in {
		strip, split := f.Strip, f.Split
		out[i] = model.FieldSpec{Name: f.Name, Kind: f.Kind, HasMissing: f.HasMissing, Strip: &strip, Split: &split}
	}
	return out
}

// SaveSettings writes s to path through a temporary file in the same
// directory, so a crash never leaves a half-written settings file behind.
func SaveSettings(path string, s *Settings) error {
	var payload bytes.Buffer
	err := gob.NewEncoder(&payload).Encode(settingsPayload{
		Fields:  encodeFields(s.Model.Fields),
		Rules:   s.Rules,
		Weights: s.Model.Weights,
		Bias:    s.Model.Bias,
	})
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}

	var buf bytes.Buffer
	buf.WriteString(settingsMagic)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc32.ChecksumIEEE(payload.Bytes()))
	buf.Write(sum[:])
	buf.Write(payload.Bytes())

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create settings file %s", path)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write settings file %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "write settings file %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "write settings file %s", path)
	}
	return nil
}

// LoadSettings reads path. found is false when the file does not exist.
// A file that exists but does not decode is ErrPersistedStateCorrupt; any
// other read failure is returned as is.
func LoadSettings(path string) (s *Settings, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read settings file %s", path)
	}

	corrupt := func(cause error) (*Settings, bool, error) {
		return nil, true, model.NewError(model.ErrPersistedStateCorrupt, "settings", path, cause)
	}
	head := len(settingsMagic) + 4
	if len(data) < head || string(data[:len(settingsMagic)]) != settingsMagic {
		return corrupt(fmt.Errorf("not a settings file"))
	}
	payload := data[head:]
	if binary.BigEndian.Uint32(data[len(settingsMagic):head]) != crc32.ChecksumIEEE(payload) {
		return corrupt(fmt.Errorf("checksum mismatch"))
	}
	var p settingsPayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return corrupt(err)
	}
	m, err := scoring.Restore(decodeFields(p.Fields), p.Weights, p.Bias)
	if err != nil {
		return corrupt(err)
	}
	for _, r := range p.Rules {
		if err := r.Validate(); err != nil {
			return corrupt(err)
		}
	}
	return &Settings{Model: m, Rules: p.Rules}, true, nil
}

// Package scenario reads the delimited parameter files driving a run:
// global socio-economic specs, and per-fuel technology records routed into
// Technology values. Records are semicolon-delimited with columns Param,
// Value and data_type (plus Fuel for the technology variant).
package scenario

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/stoveplan/internal/tech"
)

// Kind is the declared type of a parameter value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

// Value is one typed parameter value.
type Value struct {
	Kind Kind
	I    int
	F    float64
	S    string
}

// Any returns the value as its natural Go type.
func (v Value) Any() any {
	switch v.Kind {
	case KindInt:
		return v.I
	case KindFloat:
		return v.F
	default:
		return v.S
	}
}

// Specs is the global parameter set of a run.
type Specs map[string]Value

// Int returns a required int parameter.
func (s Specs) Int(name string) (int, error) {
	v, ok := s[name]
	if !ok {
		return 0, eris.Errorf("scenario: missing required parameter %q", name)
	}
	if v.Kind != KindInt {
		return 0, eris.Errorf("scenario: parameter %q is not an int", name)
	}
	return v.I, nil
}

// Float returns a required numeric parameter; int values widen to float.
func (s Specs) Float(name string) (float64, error) {
	v, ok := s[name]
	if !ok {
		return 0, eris.Errorf("scenario: missing required parameter %q", name)
	}
	switch v.Kind {
	case KindFloat:
		return v.F, nil
	case KindInt:
		return float64(v.I), nil
	}
	return 0, eris.Errorf("scenario: parameter %q is not numeric", name)
}

// String returns a required string parameter.
func (s Specs) String(name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", eris.Errorf("scenario: missing required parameter %q", name)
	}
	if v.Kind != KindString {
		return "", eris.Errorf("scenario: parameter %q is not a string", name)
	}
	return v.S, nil
}

// StringOr returns a string parameter or the fallback when absent or not a
// string.
func (s Specs) StringOr(name, fallback string) string {
	v, err := s.String(name)
	if err != nil {
		return fallback
	}
	return v
}

// FloatOr returns a numeric parameter or the fallback when absent.
func (s Specs) FloatOr(name string, fallback float64) float64 {
	if _, ok := s[name]; !ok {
		return fallback
	}
	f, err := s.Float(name)
	if err != nil {
		return fallback
	}
	return f
}

type specRecord struct {
	Param    string `csv:"Param"`
	Value    string `csv:"Value"`
	DataType string `csv:"data_type"`
}

type techRecord struct {
	Param    string `csv:"Param"`
	Value    string `csv:"Value"`
	DataType string `csv:"data_type"`
	Fuel     string `csv:"Fuel"`
}

// ReadSpecs parses the global parameter file. Rows with an empty Value are
// skipped; an unrecognized data_type is a fatal configuration error.
func ReadSpecs(r io.Reader) (Specs, error) {
	dec, err := newDecoder(r)
	if err != nil {
		return nil, err
	}
	specs := make(Specs)
	for {
		var rec specRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "scenario: read spec record")
		}
		if rec.Value == "" {
			continue
		}
		v, err := typedValue(rec.Value, rec.DataType)
		if err != nil {
			return nil, eris.Wrapf(err, "scenario: parameter %q", rec.Param)
		}
		specs[rec.Param] = v
	}
	return specs, nil
}

// ReadTechs parses the per-fuel technology file, routing each record into
// the Technology keyed by its Fuel column. Field assignment happens through
// the typed setter, so unknown parameters fail here at the boundary.
func ReadTechs(r io.Reader) (map[string]*tech.Technology, error) {
	dec, err := newDecoder(r)
	if err != nil {
		return nil, err
	}
	techs := make(map[string]*tech.Technology)
	for {
		var rec techRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "scenario: read technology record")
		}
		if rec.Value == "" {
			continue
		}
		v, err := typedValue(rec.Value, rec.DataType)
		if err != nil {
			return nil, eris.Wrapf(err, "scenario: technology %q parameter %q", rec.Fuel, rec.Param)
		}
		t, ok := techs[rec.Fuel]
		if !ok {
			t = &tech.Technology{Name: rec.Fuel}
			techs[rec.Fuel] = t
		}
		if err := t.Set(rec.Param, v.Any()); err != nil {
			return nil, eris.Wrapf(err, "scenario: technology %q", rec.Fuel)
		}
	}
	return techs, nil
}

func newDecoder(r io.Reader) (*csvutil.Decoder, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "scenario: read header")
	}
	return dec, nil
}

func typedValue(raw, dataType string) (Value, error) {
	switch dataType {
	case "int":
		i, err := strconv.Atoi(raw)
		if err != nil {
			return Value{}, eris.Wrapf(err, "scenario: value %q is not an int", raw)
		}
		return Value{Kind: KindInt, I: i}, nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, eris.Wrapf(err, "scenario: value %q is not a float", raw)
		}
		return Value{Kind: KindFloat, F: f}, nil
	case "string":
		return Value{Kind: KindString, S: raw}, nil
	}
	return Value{}, eris.Errorf("scenario: data type %q not recognised", dataType)
}

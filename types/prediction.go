package types

import "strings"

// Prediction holds the named output fields produced by one reasoning module
// call. Field order follows the module signature, values are free text.
type Prediction struct {
	fields map[string]string
	order  []string
}

// NewPrediction creates an empty Prediction.
func NewPrediction() *Prediction {
	return &Prediction{fields: make(map[string]string)}
}

// Set stores an output field value, preserving first-set order.
func (p *Prediction) Set(name, value string) {
	if _, ok := p.fields[name]; !ok {
		p.order = append(p.order, name)
	}
	p.fields[name] = value
}

// Get returns the value of a named output field.
func (p *Prediction) Get(name string) (string, bool) {
	v, ok := p.fields[name]
	return v, ok
}

// Answer returns the conventional final output: the "answer" field when
// present, otherwise the last field in signature order.
func (p *Prediction) Answer() string {
	if v, ok := p.fields["answer"]; ok {
		return v
	}
	if len(p.order) == 0 {
		return ""
	}
	return p.fields[p.order[len(p.order)-1]]
}

// Fields returns output field names in signature order.
func (p *Prediction) Fields() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// String renders the prediction as "field: value" lines.
func (p *Prediction) String() string {
	var b strings.Builder
	for i, name := range p.order {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(p.fields[name])
	}
	return b.String()
}

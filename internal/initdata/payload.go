package initdata

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

// HashField is the only field excluded from the check string.
const HashField = "hash"

// Field is a single decoded name/value pair.
type Field struct {
	Name  string
	Value string
}

// Payload holds the decoded fields of an initData string in the order they
// were received. Duplicate names resolve last-wins for lookups and for the
// check string.
type Payload struct {
	fields []Field
	index  map[string]int
}

// Parse decodes a raw initData string. Every segment must contain '=' and
// both sides are percent-decoded exactly once.
func Parse(raw string) (*Payload, error) {
	segments := strings.Split(raw, "&")

	p := &Payload{
		fields: make([]Field, 0, len(segments)),
		index:  make(map[string]int, len(segments)),
	}

	for _, segment := range segments {
		encName, encValue, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, malformed(segment, errors.New("missing '='"))
		}

		name, err := url.QueryUnescape(encName)
		if err != nil {
			return nil, encoding(segment, err)
		}
		value, err := url.QueryUnescape(encValue)
		if err != nil {
			return nil, encoding(segment, err)
		}

		p.index[name] = len(p.fields)
		p.fields = append(p.fields, Field{Name: name, Value: value})
	}

	return p, nil
}

// Fields returns every decoded field, hash included, in received order.
func (p *Payload) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Get returns the last value seen for name.
func (p *Payload) Get(name string) (string, bool) {
	i, ok := p.index[name]
	if !ok {
		return "", false
	}
	return p.fields[i].Value, true
}

// Hash returns the signature carried by the payload.
func (p *Payload) Hash() (string, bool) {
	return p.Get(HashField)
}

// Signed returns the fields covered by the signature, one per name, sorted
// byte-wise by name. Only hash is left out.
func (p *Payload) Signed() []Field {
	signed := make([]Field, 0, len(p.index))
	for name, i := range p.index {
		if name == HashField {
			continue
		}
		signed = append(signed, p.fields[i])
	}
	sort.Slice(signed, func(i, j int) bool {
		return signed[i].Name < signed[j].Name
	})
	return signed
}

// CheckString joins the signed fields as name=value lines.
func (p *Payload) CheckString() string {
	return buildCheckString(p.Signed())
}

func buildCheckString(fields []Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

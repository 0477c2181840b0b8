package contact

import "strings"

// ExtraKeys lists the optional card attributes in their canonical emission
// order. Keys are upper-case vCard property names.
var ExtraKeys = []string{
	"EMAIL",
	"SOURCE",
	"KIND",
	"XML",
	"NICKNAME",
	"PHOTO",
	"BDAY",
	"ANNIVERSARY",
	"GENDER",
	"ADR",
	"IMPP",
	"LANG",
	"TZ",
	"GEO",
	"TITLE",
	"ROLE",
	"LOGO",
	"ORG",
	"MEMBER",
	"RELATED",
	"CATEGORIES",
	"NOTE",
	"PRODID",
	"REV",
	"SOUND",
	"UID",
	"CLIENTPIDMAP",
	"URL",
	"VERSION",
	"KEY",
	"FBURL",
	"CALADRURI",
	"CALURI",
	"BIRTHPLACE",
	"DEATHPLACE",
	"DEATHDATE",
	"EXPERTISE",
	"HOBBY",
	"INTEREST",
	"ORG-DIRECTORY",
	"CONTACT-URI",
	"CREATED",
	"LANGUAGE",
	"SOCIALPROFILE",
	"JSPROP",
}

var extraRank = func() map[string]int {
	m := make(map[string]int, len(ExtraKeys))
	for i, k := range ExtraKeys {
		m[k] = i
	}
	return m
}()

// IsExtraKey reports whether key names a known optional attribute.
func IsExtraKey(key string) bool {
	_, ok := extraRank[strings.ToUpper(key)]
	return ok
}

// Extras is an ordered mapping from attribute key to value.
// The zero value is empty and ready to use.
type Extras struct {
	keys   []string
	values map[string]string
}

// Get returns the value stored under key.
func (e Extras) Get(key string) string {
	return e.values[strings.ToUpper(key)]
}

// Has reports whether key holds a value.
func (e Extras) Has(key string) bool {
	_, ok := e.values[strings.ToUpper(key)]
	return ok
}

// Set stores value under key. An empty value removes the key.
func (e *Extras) Set(key, value string) {
	key = strings.ToUpper(key)
	if value == "" {
		e.remove(key)
		return
	}
	if e.values == nil {
		e.values = make(map[string]string)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

func (e *Extras) remove(key string) {
	if _, ok := e.values[key]; !ok {
		return
	}
	delete(e.values, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i:i], e.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of stored attributes.
func (e Extras) Len() int {
	return len(e.keys)
}

// Each calls fn for every attribute: known keys in ExtraKeys order first,
// then unknown keys in insertion order.
func (e Extras) Each(fn func(key, value string)) {
	if len(e.keys) == 0 {
		return
	}
	for _, k := range ExtraKeys {
		if v, ok := e.values[k]; ok {
			fn(k, v)
		}
	}
	for _, k := range e.keys {
		if _, known := extraRank[k]; !known {
			fn(k, e.values[k])
		}
	}
}

// Clone returns an independent copy.
func (e Extras) Clone() Extras {
	if len(e.keys) == 0 {
		return Extras{}
	}
	c := Extras{
		keys:   make([]string, len(e.keys)),
		values: make(map[string]string, len(e.values)),
	}
	copy(c.keys, e.keys)
	for k, v := range e.values {
		c.values[k] = v
	}
	return c
}

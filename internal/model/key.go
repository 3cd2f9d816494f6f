package model

import (
	"slices"
	"strings"
)

const keySeparator = "\x1f"

// TemplateKey identifies a transaction shape by the set of accounts it
// touches. Posting order and repeated accounts do not change the key.
type TemplateKey string

func NewTemplateKey(accounts []string) TemplateKey {
	names := slices.Clone(accounts)
	slices.Sort(names)
	names = slices.Compact(names)
	return TemplateKey(strings.Join(names, keySeparator))
}

// Accounts returns the sorted account names the key was built from.
func (k TemplateKey) Accounts() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), keySeparator)
}

func (k TemplateKey) String() string {
	return strings.Join(k.Accounts(), ", ")
}

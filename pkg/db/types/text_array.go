package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TextArray maps a Postgres text[] column. Other dialects store the same
// array literal in a plain text column.
type TextArray []string

func (TextArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (a *TextArray) Scan(src any) error {
	if src == nil {
		*a = TextArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("TextArray: unsupported Scan type %T", src)
	}
}

func (a TextArray) Value() (driver.Value, error) {
	// Postgres array literal: {"a","b"}
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, item := range a {
		escaped := strings.ReplaceAll(item, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		parts = append(parts, `"`+escaped+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func (a *TextArray) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return fmt.Errorf("TextArray: malformed literal %q", s)
	}
	body := s[1 : len(s)-1]
	out := TextArray{}
	if strings.TrimSpace(body) == "" {
		*a = out
		return nil
	}

	var (
		current  strings.Builder
		quoted   bool
		wasQuote bool
		escaped  bool
	)
	flush := func() {
		item := current.String()
		if !wasQuote {
			item = strings.TrimSpace(item)
			if strings.EqualFold(item, "NULL") {
				item = ""
			}
		}
		out = append(out, item)
		current.Reset()
		wasQuote = false
	}

	for _, r := range body {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
			wasQuote = true
		case r == ',' && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if quoted {
		return fmt.Errorf("TextArray: unterminated quote in %q", s)
	}
	flush()

	*a = out
	return nil
}

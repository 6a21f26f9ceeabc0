package db

import (
	"fmt"
	"strings"
)

// TagFilter builds an FT tag filter fragment, escaping the value.
func TagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// EscapeText escapes user text for use inside an FT full-text query.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "\"", "\\\"", "'", "\\'",
	":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)",
	"-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	" ", "\\ ",
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`, `'`, `\'`, `"`, `\"`, `@`, `\@`,
	`{`, `\{`, `}`, `\}`, `(`, `\(`, `)`, `\)`,
	`|`, `\|`, `-`, `\-`, `~`, `\~`, `*`, `\*`,
	`[`, `\[`, `]`, `\]`, `!`, `\!`, `%`, `\%`,
	`^`, `\^`, `$`, `\$`, `<`, `\<`, `>`, `\>`,
	`=`, `\=`, `;`, `\;`, `+`, `\+`, `:`, `\:`,
)

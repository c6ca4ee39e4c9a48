package model

import "strings"

// Canonical language tags accepted on submissions. The judge's runner
// registry is keyed by these.
const (
	LangJava       = "java"
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangC          = "c"
	LangCPP        = "cpp"
)

var languageAliases = map[string]string{
	"java":       LangJava,
	"python":     LangPython,
	"python3":    LangPython,
	"py":         LangPython,
	"javascript": LangJavaScript,
	"js":         LangJavaScript,
	"node":       LangJavaScript,
	"c":          LangC,
	"cpp":        LangCPP,
	"c++":        LangCPP,
}

// NormalizeLanguage maps a client-supplied language tag to its canonical
// form. The second return value is false for unknown tags; an empty tag
// is unknown rather than defaulted.
func NormalizeLanguage(tag string) (string, bool) {
	canonical, ok := languageAliases[strings.ToLower(strings.TrimSpace(tag))]
	return canonical, ok
}

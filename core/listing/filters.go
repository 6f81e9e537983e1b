package listing

import "strings"

// 始终隐藏的文件名
var hiddenFiles = map[string]bool{
	".DS_Store":     true,
	"Thumbs.db":     true,
	"desktop.ini":   true,
	".git":          true,
	".svn":          true,
	".hg":           true,
	"node_modules":  true,
	".next":         true,
	".nuxt":         true,
	".vscode":       true,
	".idea":         true,
	"__pycache__":   true,
	".pytest_cache": true,
	".mypy_cache":   true,
}

// 始终隐藏的扩展名
var hiddenExtensions = map[string]bool{
	".exe":   true,
	".dll":   true,
	".sys":   true,
	".tmp":   true,
	".temp":  true,
	".log":   true,
	".cache": true,
}

// 始终隐藏的目录名
var hiddenFolders = map[string]bool{
	".git":          true,
	".svn":          true,
	".hg":           true,
	"node_modules":  true,
	".next":         true,
	".nuxt":         true,
	"__pycache__":   true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".vscode":       true,
	".idea":         true,
	"dist":          true,
	"build":         true,
	"out":           true,
	".cache":        true,
	"temp":          true,
	"tmp":           true,
}

// Filter decides which directory entries are visible.
type Filter struct {
	allowed map[string]bool // nil 表示不限制扩展名
}

// NewFilter builds a filter; extensions are lowercase with a leading dot.
// An empty list shows every file that is not explicitly hidden.
func NewFilter(allowedExtensions []string) *Filter {
	f := &Filter{}
	if len(allowedExtensions) > 0 {
		f.allowed = make(map[string]bool, len(allowedExtensions))
		for _, ext := range allowedExtensions {
			f.allowed[strings.ToLower(ext)] = true
		}
	}
	return f
}

// ShowFolder reports whether a directory named name should be listed.
func (f *Filter) ShowFolder(name string) bool {
	return !strings.HasPrefix(name, ".") && !hiddenFolders[name]
}

// ShowFile reports whether a file named name with extension ext should be listed.
func (f *Filter) ShowFile(name, ext string) bool {
	if strings.HasPrefix(name, ".") || hiddenFiles[name] || hiddenExtensions[ext] {
		return false
	}
	if f.allowed == nil {
		return true
	}
	return f.allowed[ext]
}

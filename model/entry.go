package model

import "time"

// EntryType 文件系统条目类型
type EntryType string

const (
	EntryFile   EntryType = "file"
	EntryFolder EntryType = "folder"
)

// FileSystemEntry 目录列表中的一个条目
type FileSystemEntry struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Type      EntryType          `json:"type"`
	Path      string             `json:"path"`
	Size      *int64             `json:"size,omitempty"`
	Modified  *time.Time         `json:"modified,omitempty"`
	Extension string             `json:"extension,omitempty"`
	Children  []*FileSystemEntry `json:"children,omitempty"`
}

// IsFolder reports whether the entry is a directory.
func (e *FileSystemEntry) IsFolder() bool {
	return e.Type == EntryFolder
}

// AllowedBase 允许访问的根目录
type AllowedBase struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

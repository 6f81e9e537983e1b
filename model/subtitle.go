package model

// UnknownLanguage is used when a stream carries no language tag.
const UnknownLanguage = "unknown"

// SubtitleStream 探测得到的字幕流元数据
type SubtitleStream struct {
	Index    int    `json:"index"`
	Language string `json:"language"`
	Title    string `json:"title"`
}

// SubtitleTrack 已缓存的字幕轨道
type SubtitleTrack struct {
	Index    int    `json:"index"`
	Language string `json:"language"`
	Label    string `json:"label"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// StreamStatus 单个字幕流的处理结果
type StreamStatus string

const (
	StatusExtracted StreamStatus = "extracted"
	StatusCached    StreamStatus = "cached"
	StatusRestored  StreamStatus = "restored"
	StatusFailed    StreamStatus = "failed"
)

// StreamOutcome 提取报告中的单条记录
type StreamOutcome struct {
	Track    int          `json:"track"`
	Language string       `json:"language"`
	Title    string       `json:"title"`
	Path     string       `json:"path"`
	Status   StreamStatus `json:"status"`
	Success  bool         `json:"success"`
	Message  string       `json:"message,omitempty"`
	Error    string       `json:"error,omitempty"`
	Details  string       `json:"details,omitempty"`
}

// ExtractionReport 一次提取请求的汇总
type ExtractionReport struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Skipped bool            `json:"-"`
	Results []StreamOutcome `json:"results"`
}

// Extracted counts outcomes whose artifact is present on disk.
func (r *ExtractionReport) Extracted() int {
	n := 0
	for _, o := range r.Results {
		if o.Success {
			n++
		}
	}
	return n
}

// SidecarSubtitle 视频旁边的外挂字幕文件
type SidecarSubtitle struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Language string `json:"language"`
	Format   string `json:"format"`
	URL      string `json:"url"`
}

package server

import (
	"net/http"
	"strconv"
	"strings"

	"mediashelf/core/listing"
	"mediashelf/core/sandbox"
	"mediashelf/model"
)

const defaultListDepth = 1

// listingResponse 目录列表响应
type listingResponse struct {
	Items        []*model.FileSystemEntry `json:"items"`
	Error        string                   `json:"error,omitempty"`
	IsHomePage   bool                     `json:"isHomePage,omitempty"`
	AllowedPaths []model.AllowedBase      `json:"allowedPaths,omitempty"`
}

// FileSystemHandler 处理目录浏览请求
type FileSystemHandler struct {
	resolver *sandbox.Resolver
	lister   *listing.Lister
}

// NewFileSystemHandler 创建 FileSystemHandler 实例
func NewFileSystemHandler(resolver *sandbox.Resolver, lister *listing.Lister) *FileSystemHandler {
	return &FileSystemHandler{resolver: resolver, lister: lister}
}

// ServeHTTP 实现 http.Handler 接口
func (h *FileSystemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw, _ := rawQueryParam(r, "path")
	depth := parseDepth(q.Get("depth"))
	flatten := q.Get("flatten") == "true"
	filter := strings.TrimSpace(q.Get("filter"))

	resolved, err := h.resolver.Resolve(raw)
	if err != nil {
		h.fail(w, err, false)
		return
	}

	// 启用白名单时根路径返回首页
	if resolved.Root && h.resolver.Config().EnforceAllowedPaths {
		writeJSON(w, http.StatusOK, listingResponse{
			Items:        []*model.FileSystemEntry{},
			IsHomePage:   true,
			AllowedPaths: h.resolver.ListAllowedBases(),
		})
		return
	}

	if err := h.resolver.Check(resolved.Path); err != nil {
		h.fail(w, err, true)
		return
	}

	items, err := h.lister.List(resolved.Path, 0, depth)
	if err != nil {
		status, _ := statusFor(err)
		h.fail(w, err, status >= 500)
		return
	}

	if flatten {
		items = listing.Flatten(items)
	}
	if filter != "" {
		items = listing.FilterByName(items, filter)
	}
	if items == nil {
		items = []*model.FileSystemEntry{}
	}
	writeJSON(w, http.StatusOK, listingResponse{Items: items})
}

func (h *FileSystemHandler) fail(w http.ResponseWriter, err error, withBases bool) {
	status, _ := statusFor(err)
	resp := listingResponse{
		Items: []*model.FileSystemEntry{},
		Error: messageFor(err, "Path does not exist or is not accessible"),
	}
	if withBases {
		resp.AllowedPaths = h.resolver.ListAllowedBases()
	}
	writeJSON(w, status, resp)
}

func parseDepth(raw string) int {
	if raw == "" {
		return defaultListDepth
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultListDepth
	}
	if n < 0 {
		return 0
	}
	return n
}

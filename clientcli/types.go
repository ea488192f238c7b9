package clientcli

import (
	"time"
)

// Entry is one object in a box listing.
type Entry struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"lastModified"`
}

// ListResult is a box listing.
type ListResult struct {
	Box   string  `json:"box"`
	Items []Entry `json:"items"`
}

// TotalSize calculates the total size of all items in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// UploadResult reports one upload request.
type UploadResult struct {
	Box   string   `json:"box"`
	Files []string `json:"files"`
	Saved int      `json:"saved"`
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	Name      string
	LocalPath string // empty = derive from name, "-" = stdout
	Range     string // optional Range header value, e.g. "bytes=0-1023"
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Box          string `json:"box"`
	Name         string `json:"name"`
	LocalPath    string `json:"local_path"`
	ETag         string `json:"etag,omitempty"`
	ContentType  string `json:"content_type"`
	ContentRange string `json:"content_range,omitempty"`
	Size         int64  `json:"size_bytes"`
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ClearResult reports a delete-all request.
type ClearResult struct {
	Box     string `json:"box"`
	Deleted int    `json:"deleted"`
}

// serverError mirrors the gateway's failure body.
type serverError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// serverOK mirrors the gateway's success body for mutations.
type serverOK struct {
	OK      bool  `json:"ok"`
	Saved   *int  `json:"saved,omitempty"`
	Deleted *int  `json:"deleted,omitempty"`
	Exists  *bool `json:"exists,omitempty"`
}

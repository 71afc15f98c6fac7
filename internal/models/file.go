package models

// FileRef points at a file hosted by Notion or externally. LocalPath is set by
// the exporter once the file has been downloaded.
type FileRef struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
	LocalPath  string `json:"_local_path,omitempty"`
}

// FileObject is an entry of a files property
type FileObject struct {
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type"`
	File     *FileRef `json:"file,omitempty"`
	External *FileRef `json:"external,omitempty"`
}

// Ref returns the reference named by Type, falling back to whichever is set
func (f FileObject) Ref() *FileRef {
	return pickRef(f.Type, f.File, f.External)
}

func pickRef(kind string, file, external *FileRef) *FileRef {
	if kind == "external" && external != nil {
		return external
	}
	if file != nil {
		return file
	}
	return external
}

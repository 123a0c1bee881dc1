package stub

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type UploadResponse struct {
	Filename string  `json:"filename"`
	SizeMB   float64 `json:"size_mb"`
}

type DownloadsResponse struct {
	Src   string `json:"src"`
	Depth string `json:"depth"`
	RGBD  string `json:"rgbd"`
}

type ProcessResponse struct {
	Downloads DownloadsResponse `json:"downloads"`
}

type ProgressResponse struct {
	Stage    string  `json:"stage"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

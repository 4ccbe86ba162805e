package misc

// Body is the common response envelope of all JSON endpoints.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorBody struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Message string      `json:"error"`
	Data    interface{} `json:"data,omitempty"`
}

type PagedBody struct {
	List  interface{} `json:"list"`
	Total uint64      `json:"total"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

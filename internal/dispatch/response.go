package dispatch

import (
	"net/http"
	"strings"

	"github.com/dreschagin/edge-adapter/internal/assets"
)

// Response is the single reply the dispatcher produces for a request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) write(w http.ResponseWriter) error {
	header := w.Header()
	for key, values := range r.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

func textResponse(status int, body string) *Response {
	header := http.Header{}
	header.Set("Content-Type", "text/plain")
	return &Response{
		Status: status,
		Header: header,
		Body:   []byte(body),
	}
}

func methodNotAllowedResponse() *Response {
	return textResponse(http.StatusMethodNotAllowed, "405 Method Not Allowed")
}

func notFoundResponse() *Response {
	return textResponse(http.StatusNotFound, "404 Not Found")
}

func renderErrorResponse(err error) *Response {
	return textResponse(http.StatusInternalServerError, "Error rendering route: "+err.Error())
}

func staticResponse(path string, body []byte) *Response {
	header := http.Header{}
	header.Set("Content-Type", assets.ServedContentType(path))
	return &Response{
		Status: http.StatusOK,
		Header: header,
		Body:   body,
	}
}

// fromRender copies a renderer response. set-cookie values become one header
// line each, in order; any other list is joined into a single line.
func fromRender(rendered *RenderResponse) *Response {
	header := http.Header{}
	for key, values := range rendered.Headers {
		if strings.EqualFold(key, "set-cookie") {
			for _, value := range values {
				header.Add(key, value)
			}
			continue
		}
		header.Add(key, strings.Join(values, ","))
	}

	status := rendered.Status
	if status == 0 {
		status = http.StatusOK
	}

	return &Response{
		Status: status,
		Header: header,
		Body:   rendered.Body,
	}
}

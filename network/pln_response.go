package network

import (
	"fmt"
	"github.com/pkppln/depositor/models"
	"io/ioutil"
	"net/http"
)

// PLNResponse wraps one exchange with the staging server. The raw
// body is read lazily and exactly once; typed accessors parse it on
// demand.
type PLNResponse struct {
	Request  *http.Request
	Response *http.Response
	Error    error

	hasBeenRead bool
	data        []byte
}

// NewPLNResponse returns a pointer to a new response object.
func NewPLNResponse() *PLNResponse {
	return &PLNResponse{
		hasBeenRead: false,
	}
}

// Returns the raw body of the HTTP response as a byte slice.
// The return value may be nil.
func (resp *PLNResponse) RawResponseData() ([]byte, error) {
	if !resp.hasBeenRead {
		resp.readResponse()
	}
	return resp.data, resp.Error
}

// Reads the body of an HTTP response object, closes the stream, and
// keeps the bytes. The body MUST be closed, or you'll wind up
// with a lot of open network connections.
func (resp *PLNResponse) readResponse() {
	if !resp.hasBeenRead && resp.Response != nil && resp.Response.Body != nil {
		resp.data, resp.Error = ioutil.ReadAll(resp.Response.Body)
		resp.Response.Body.Close()
		resp.hasBeenRead = true
	}
}

// StatusCode returns the HTTP status code, or zero when the request
// never produced a response (transport failure).
func (resp *PLNResponse) StatusCode() int {
	if resp.Response == nil {
		return 0
	}
	return resp.Response.StatusCode
}

// StatusClass returns the first digit of the status code: 2 for
// success, 4 for client errors, and so on. Zero means no response.
func (resp *PLNResponse) StatusClass() int {
	return resp.StatusCode() / 100
}

// IsSuccess returns true for any 2xx response.
func (resp *PLNResponse) IsSuccess() bool {
	return resp.StatusClass() == 2
}

// ErrorMessage summarizes what went wrong, for recording on a
// deposit: the transport error if there was one, otherwise the
// remote status and the start of the body.
func (resp *PLNResponse) ErrorMessage() string {
	if resp.Error != nil {
		return resp.Error.Error()
	}
	if resp.Response == nil {
		return "No response from staging server"
	}
	body, _ := resp.RawResponseData()
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return fmt.Sprintf("Staging server returned %s: %s", resp.Response.Status, snippet)
}

// ServiceDocument parses the body as a capability document.
func (resp *PLNResponse) ServiceDocument() (*models.ServiceDocument, error) {
	data, err := resp.RawResponseData()
	if err != nil {
		return nil, err
	}
	return models.ParseServiceDocument(data)
}

// Statement parses the body as a deposit state resource.
func (resp *PLNResponse) Statement() (*models.Statement, error) {
	data, err := resp.RawResponseData()
	if err != nil {
		return nil, err
	}
	return models.ParseStatement(data)
}

package network

import (
	"fmt"
	"github.com/op/go-logging"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/models"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
)

// PLNRestClient speaks the preservation network's SWORD 2.0 surface:
// the service document, the per-deposit state resource, and the
// collection and edit resources that accept metadata documents. All
// operations are idempotent and safe to repeat; callers decide what a
// given status class means in their stage of the pipeline.
type PLNRestClient struct {
	HostUrl    string
	httpClient *http.Client
	transport  *http.Transport
	logger     *logging.Logger
}

// NewPLNRestClient creates a new client. Param hostUrl is the staging
// server's base URL and should come from the config file.
func NewPLNRestClient(hostUrl string, logger *logging.Logger) (*PLNRestClient, error) {
	// see security warning on nil PublicSuffixList here:
	// http://gotour.golang.org/src/pkg/net/http/cookiejar/jar.go?s=1011:1492#L24
	cookieJar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("Can't create cookie jar for HTTP client: %v", err)
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 8,
		DisableKeepAlives:   false,
	}
	httpClient := &http.Client{Jar: cookieJar, Transport: transport}
	return &PLNRestClient{
		HostUrl:    strings.TrimSuffix(hostUrl, "/"),
		httpClient: httpClient,
		transport:  transport,
		logger:     logger,
	}, nil
}

// BuildUrl combines the host url with the relative url.
func (client *PLNRestClient) BuildUrl(relativeUrl string) string {
	return client.HostUrl + relativeUrl
}

// ServiceDocument fetches the network's capability document for one
// tenant: acceptance flag, upload ceiling, checksum algorithm and
// the current terms of use.
func (client *PLNRestClient) ServiceDocument(tenant *models.Tenant) *PLNResponse {
	headers := map[string]string{
		"On-Behalf-Of": tenant.UUID,
		"Journal-Url":  tenant.BaseUrl,
	}
	return client.doRequest("GET", client.BuildUrl(constants.ServiceDocumentPath), headers, "")
}

// DepositStatement fetches the state resource for one deposit. A 2xx
// here also serves as the existence check before create-or-update.
func (client *PLNRestClient) DepositStatement(tenantUUID, depositUUID string) *PLNResponse {
	relativeUrl := fmt.Sprintf(constants.StatementPath, tenantUUID, depositUUID)
	return client.doRequest("GET", client.BuildUrl(relativeUrl), nil, "")
}

// CreateDeposit POSTs the metadata document at atomPath to the
// tenant's collection resource.
func (client *PLNRestClient) CreateDeposit(tenantUUID, atomPath string) *PLNResponse {
	relativeUrl := fmt.Sprintf(constants.CollectionPath, tenantUUID)
	return client.doRequest("POST", client.BuildUrl(relativeUrl), nil, atomPath)
}

// UpdateDeposit PUTs the metadata document at atomPath to the
// deposit's edit resource.
func (client *PLNRestClient) UpdateDeposit(tenantUUID, depositUUID, atomPath string) *PLNResponse {
	relativeUrl := fmt.Sprintf(constants.EditPath, tenantUUID, depositUUID)
	return client.doRequest("PUT", client.BuildUrl(relativeUrl), nil, atomPath)
}

// doRequest performs one HTTP exchange. If filePath is non-empty, the
// file becomes the request body with the atom content type. Transport
// failures land in the response's Error; HTTP status interpretation
// is left to the caller.
func (client *PLNRestClient) doRequest(method, absoluteUrl string, headers map[string]string, filePath string) *PLNResponse {
	resp := NewPLNResponse()
	var req *http.Request
	var err error
	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			resp.Error = fmt.Errorf("Cannot open %s: %v", filePath, err)
			return resp
		}
		defer file.Close()
		finfo, err := file.Stat()
		if err != nil {
			resp.Error = err
			return resp
		}
		req, err = http.NewRequest(method, absoluteUrl, file)
		if err != nil {
			resp.Error = err
			return resp
		}
		req.ContentLength = finfo.Size()
		req.Header.Set("Content-Type", constants.AtomContentType)
	} else {
		req, err = http.NewRequest(method, absoluteUrl, nil)
		if err != nil {
			resp.Error = err
			return resp
		}
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	resp.Request = req
	if client.logger != nil {
		client.logger.Debug("%s %s", method, absoluteUrl)
	}
	resp.Response, resp.Error = client.httpClient.Do(req)
	return resp
}

package network

import (
	"encoding/json"
	"fmt"
	"github.com/op/go-logging"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/models"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ContentSummary describes one piece of preservable content as the
// publisher's listing endpoint reports it.
type ContentSummary struct {
	Id          int       `json:"id"`
	Volume      string    `json:"volume"`
	Issue       string    `json:"issue"`
	PublishedAt time.Time `json:"published_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// ExportClient talks to the publisher's export surface: a listing
// endpoint for discovering preservable content, and an export
// endpoint that serializes a batch of content into one structured
// XML document. Export is called once per content kind per deposit,
// not once per item, so shared metadata isn't traversed repeatedly.
type ExportClient struct {
	httpClient *http.Client
	logger     *logging.Logger
}

func NewExportClient(logger *logging.Logger) *ExportClient {
	return &ExportClient{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// ListContent returns summaries of all content of the given kind on
// the tenant's site.
func (client *ExportClient) ListContent(tenant *models.Tenant, contentKind string) ([]*ContentSummary, error) {
	params := url.Values{}
	params.Set("kind", contentKind)
	listUrl := fmt.Sprintf("%s%s?%s", strings.TrimSuffix(tenant.BaseUrl, "/"),
		constants.ContentListPath, params.Encode())
	resp, err := client.httpClient.Get(listUrl)
	if err != nil {
		return nil, fmt.Errorf("Cannot list %s content for %s: %v",
			contentKind, tenant.UUID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Content listing for %s returned %s",
			tenant.UUID, resp.Status)
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	summaries := make([]*ContentSummary, 0)
	err = json.Unmarshal(data, &summaries)
	if err != nil {
		return nil, fmt.Errorf("Cannot parse content listing for %s: %v",
			tenant.UUID, err)
	}
	return summaries, nil
}

// Export serializes the given content items into one XML document.
// Returns an error if the export produces nothing, since an empty
// deposit is never valid.
func (client *ExportClient) Export(tenant *models.Tenant, contentKind string, ids []int) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("Nothing to export: no %s ids given", contentKind)
	}
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = strconv.Itoa(id)
	}
	params := url.Values{}
	params.Set("kind", contentKind)
	params.Set("ids", strings.Join(idStrings, ","))
	exportUrl := fmt.Sprintf("%s%s?%s", strings.TrimSuffix(tenant.BaseUrl, "/"),
		constants.ContentExportPath, params.Encode())
	if client.logger != nil {
		client.logger.Debug("Exporting %d %s item(s) from %s", len(ids), contentKind, tenant.UUID)
	}
	resp, err := client.httpClient.Get(exportUrl)
	if err != nil {
		return nil, fmt.Errorf("Cannot export %s content for %s: %v",
			contentKind, tenant.UUID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Export for %s returned %s", tenant.UUID, resp.Status)
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("Export for %s returned an empty document", tenant.UUID)
	}
	return data, nil
}

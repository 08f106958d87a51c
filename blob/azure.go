package blob

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-pipeline-go/pipeline"
	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/pkg/errors"
)

const (
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	azuriteBlobURL     = "http://127.0.0.1:10000/devstoreaccount1"
)

// AzureConnection holds the parts of an Azure storage connection string that the blob store needs.
type AzureConnection struct {
	AccountName  string `errorTxt:"AccountName" mandatory:"yes"`
	AccountKey   string `errorTxt:"AccountKey" mandatory:"yes"`
	BlobEndpoint string `errorTxt:"BlobEndpoint" mandatory:"yes"`
}

// ParseAzureConnectionString reads "Key=Value;..." pairs.
// BlobEndpoint is derived from DefaultEndpointsProtocol, AccountName and EndpointSuffix when absent.
func ParseAzureConnectionString(cs string) (AzureConnection, error) {
	kv := make(map[string]string)
	for _, part := range strings.Split(cs, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.Index(part, "=")
		if i <= 0 {
			return AzureConnection{}, fmt.Errorf("malformed connection string segment %q", part)
		}
		kv[part[:i]] = part[i+1:] // account keys end with "=" so only split once
	}
	if strings.EqualFold(kv["UseDevelopmentStorage"], "true") {
		return AzureConnection{AccountName: azuriteAccountName, AccountKey: azuriteAccountKey, BlobEndpoint: azuriteBlobURL}, nil
	}
	c := AzureConnection{AccountName: kv["AccountName"], AccountKey: kv["AccountKey"], BlobEndpoint: kv["BlobEndpoint"]}
	if c.BlobEndpoint == "" && c.AccountName != "" {
		protocol := kv["DefaultEndpointsProtocol"]
		if protocol == "" {
			protocol = "https"
		}
		suffix := kv["EndpointSuffix"]
		if suffix == "" {
			suffix = "core.windows.net"
		}
		c.BlobEndpoint = fmt.Sprintf("%v://%v.blob.%v", protocol, c.AccountName, suffix)
	}
	if c.AccountName == "" || c.AccountKey == "" {
		return AzureConnection{}, fmt.Errorf("connection string requires AccountName and AccountKey")
	}
	c.BlobEndpoint = strings.TrimRight(c.BlobEndpoint, "/")
	return c, nil
}

// AzureStore keeps blobs in one Azure storage container. Versions are ETags.
type AzureStore struct {
	container azblob.ContainerURL
}

// NewAzureStore connects to container using a storage account connection string.
func NewAzureStore(connectionString string, container string) (*AzureStore, error) {
	c, err := ParseAzureConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	cred, err := azblob.NewSharedKeyCredential(c.AccountName, c.AccountKey)
	if err != nil {
		return nil, errors.Wrap(err, "error creating Azure shared key credential")
	}
	u, err := url.Parse(c.BlobEndpoint + "/" + container)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing Azure container URL")
	}
	p := azblob.NewPipeline(cred, azblob.PipelineOptions{Retry: azblob.RetryOptions{MaxTries: 3}})
	return NewAzureStoreWithPipeline(*u, p), nil
}

func NewAzureStoreWithPipeline(containerURL url.URL, p pipeline.Pipeline) *AzureStore {
	return &AzureStore{container: azblob.NewContainerURL(containerURL, p)}
}

func (a *AzureStore) List(ctx context.Context, prefix string) ([]Object, error) {
	retval := make([]Object, 0)
	for marker := (azblob.Marker{}); marker.NotDone(); {
		resp, err := a.container.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{Prefix: prefix})
		if err != nil {
			return nil, errors.Wrapf(err, "error listing Azure prefix %v", prefix)
		}
		marker = resp.NextMarker
		for _, item := range resp.Segment.BlobItems {
			retval = append(retval, Object{Name: item.Name, LastModified: item.Properties.LastModified})
		}
	}
	return retval, nil
}

func (a *AzureStore) ReadText(ctx context.Context, name string) (string, error) {
	text, _, err := a.ReadTextVersion(ctx, name)
	return text, err
}

func (a *AzureStore) ReadTextVersion(ctx context.Context, name string) (string, string, error) {
	blobURL := a.container.NewBlockBlobURL(name)
	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if isAzureNotFound(err) {
			return "", "", ErrNotFound
		}
		return "", "", errors.Wrapf(err, "error downloading Azure blob %v", name)
	}
	body := resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer body.Close()
	b, err := ioutil.ReadAll(body)
	if err != nil {
		return "", "", errors.Wrapf(err, "error reading Azure blob %v", name)
	}
	return string(b), string(resp.ETag()), nil
}

func (a *AzureStore) WriteText(ctx context.Context, name string, text string, overwrite bool) error {
	ac := azblob.BlobAccessConditions{}
	if !overwrite {
		ac.ModifiedAccessConditions.IfNoneMatch = azblob.ETagAny
	}
	err := a.upload(ctx, name, text, ac)
	if err != nil && !overwrite && isAzureConditionFailure(err) {
		return ErrAlreadyExists
	}
	return err
}

func (a *AzureStore) WriteTextIfVersion(ctx context.Context, name string, text string, version string) error {
	ac := azblob.BlobAccessConditions{}
	if version == "" {
		ac.ModifiedAccessConditions.IfNoneMatch = azblob.ETagAny
	} else {
		ac.ModifiedAccessConditions.IfMatch = azblob.ETag(version)
	}
	err := a.upload(ctx, name, text, ac)
	if err != nil && isAzureConditionFailure(err) {
		return ErrVersionConflict
	}
	return err
}

func (a *AzureStore) upload(ctx context.Context, name string, text string, ac azblob.BlobAccessConditions) error {
	_, err := azblob.UploadBufferToBlockBlob(ctx, []byte(text), a.container.NewBlockBlobURL(name), azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders:  azblob.BlobHTTPHeaders{ContentType: contentType(name)},
		AccessConditions: ac,
	})
	if err != nil && !isAzureConditionFailure(err) {
		return errors.Wrapf(err, "error uploading Azure blob %v", name)
	}
	return err
}

func (a *AzureStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := a.container.NewBlockBlobURL(name).GetProperties(ctx, azblob.BlobAccessConditions{}, azblob.ClientProvidedKeyOptions{})
	if err == nil {
		return true, nil
	}
	if isAzureNotFound(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "error reading properties of Azure blob %v", name)
}

func azureStatus(err error) (azblob.ServiceCodeType, int) {
	var serr azblob.StorageError
	if !errors.As(err, &serr) {
		return "", 0
	}
	status := 0
	if r := serr.Response(); r != nil {
		status = r.StatusCode
	}
	return serr.ServiceCode(), status
}

func isAzureNotFound(err error) bool {
	code, status := azureStatus(err)
	return code == azblob.ServiceCodeBlobNotFound || status == http.StatusNotFound
}

func isAzureConditionFailure(err error) bool {
	code, status := azureStatus(err)
	return code == azblob.ServiceCodeBlobAlreadyExists || code == azblob.ServiceCodeConditionNotMet ||
		status == http.StatusPreconditionFailed || status == http.StatusConflict
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv; charset=utf-8"
	case strings.HasSuffix(name, ".json"), strings.HasSuffix(name, ".jsonl"):
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

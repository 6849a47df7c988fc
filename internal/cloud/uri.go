package cloud

import (
	"net/url"
	"path"
	"strings"

	"rbkoracle/internal/errs"
)

// URI is a parsed upload destination like s3://bucket/reports/daily.json.
type URI struct {
	Provider string // "s3", "minio", "azure", "gs", "b2"
	Bucket   string // Bucket or container name
	Path     string // Path within bucket (without leading /)
	Region   string // Region (optional, extracted from host)
	Endpoint string // Custom endpoint (for MinIO, etc)
	FullURI  string
}

var providerAliases = map[string]string{
	"s3":    "s3",
	"minio": "minio",
	"b2":    "b2",
	"azure": "azure",
	"gs":    "gs",
	"gcs":   "gs",
}

// ParseURI parses an upload destination.
// Supported formats:
//   - s3://bucket/path/report.json
//   - s3://bucket.s3.region.amazonaws.com/path/report.json
//   - minio://minio.example.com:9000/bucket/path/report.json
//   - azure://container/path/report.json
//   - gs://bucket/path/report.json (gcs:// is accepted)
//   - b2://bucket/path/report.json
func ParseURI(uri string) (*URI, error) {
	if uri == "" {
		return nil, errs.Config("upload URI cannot be empty")
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, errs.Config("invalid upload URI %s: %v", uri, err)
	}

	provider, ok := providerAliases[strings.ToLower(parsed.Scheme)]
	if !ok {
		return nil, errs.Config("unsupported upload URI scheme %q (supported: s3, minio, b2, azure, gs)", parsed.Scheme)
	}

	bucket := parsed.Host
	if bucket == "" {
		return nil, errs.Config("upload URI must name a bucket (e.g., s3://bucket/path)")
	}
	objectPath := strings.TrimPrefix(parsed.Path, "/")

	var region, endpoint string
	switch {
	case strings.HasSuffix(bucket, ".amazonaws.com"):
		// bucket.s3.us-west-2.amazonaws.com or bucket.s3-us-west-2.amazonaws.com
		parts := strings.Split(bucket, ".")
		bucket = parts[0]
		for i, part := range parts {
			if part == "s3" && i+1 < len(parts) && parts[i+1] != "amazonaws" {
				region = parts[i+1]
				break
			}
			if strings.HasPrefix(part, "s3-") {
				region = strings.TrimPrefix(part, "s3-")
				break
			}
		}
	case (provider == "minio" || provider == "s3" || provider == "b2") && strings.ContainsAny(bucket, ".:"):
		// The host is an endpoint; the bucket is the first path element.
		endpoint = bucket
		first, rest, _ := strings.Cut(objectPath, "/")
		if first == "" {
			return nil, errs.Config("upload URI %s names an endpoint but no bucket", uri)
		}
		bucket, objectPath = first, rest
	}

	return &URI{
		Provider: provider,
		Bucket:   bucket,
		Path:     objectPath,
		Region:   region,
		Endpoint: endpointURL(endpoint),
		FullURI:  uri,
	}, nil
}

func endpointURL(host string) string {
	if host == "" || strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// Key returns the object key, appending defaultName when the URI names a
// directory.
func (u *URI) Key(defaultName string) string {
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return path.Join(u.Path, defaultName)
	}
	return u.Path
}

// ToConfig converts a URI to a Config, filling credentials from the environment.
func (u *URI) ToConfig() *Config {
	cfg := &Config{
		Provider:  u.Provider,
		Bucket:    u.Bucket,
		Region:    u.Region,
		Endpoint:  u.Endpoint,
		PathStyle: u.Provider == "minio",
	}
	cfg.FromEnv()
	return cfg
}

func (u *URI) String() string { return u.FullURI }

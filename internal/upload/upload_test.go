package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alphabot-ai/storyshelf/internal/testsupport"
)

const testBucket = "story-covers-test"

func newTestService(t *testing.T, fake *testsupport.S3Fake, region string, opts Options) *Service {
	t.Helper()
	client := s3.New(s3.Options{
		Region:           region,
		Credentials:      credentials.NewStaticCredentialsProvider("test", "test", ""),
		BaseEndpoint:     aws.String(fake.URL()),
		UsePathStyle:     true,
		RetryMaxAttempts: 1,
	})
	if opts.Bucket == "" {
		opts.Bucket = testBucket
	}
	if opts.Region == "" {
		opts.Region = region
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = fake.URL() + "/" + opts.Bucket
	}
	return New(client, s3.NewPresignClient(client), opts)
}

func TestUploadStoresObject(t *testing.T) {
	fake := testsupport.NewS3Fake()
	defer fake.Close()
	svc := newTestService(t, fake, "us-east-1", Options{})

	data := []byte("\x89PNG fake image bytes")
	res, err := svc.Upload(context.Background(), "my cover (1).png", "image/png", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	keyPattern := regexp.MustCompile(`^story-covers/[0-9a-f-]{36}-my_cover__1_\.png$`)
	if !keyPattern.MatchString(res.Key) {
		t.Fatalf("unexpected key %q", res.Key)
	}
	if res.URL != svc.PublicURL(res.Key) {
		t.Fatalf("expected url %q, got %q", svc.PublicURL(res.Key), res.URL)
	}
	if res.FileName != "my cover (1).png" || res.FileSize != int64(len(data)) || res.ContentType != "image/png" {
		t.Fatalf("unexpected result %+v", res)
	}

	bucket, ok := fake.Bucket(testBucket)
	if !ok {
		t.Fatalf("expected bucket to be created")
	}
	obj, ok := bucket.Objects[res.Key]
	if !ok {
		t.Fatalf("expected object %q to be stored", res.Key)
	}
	if !bytes.Equal(obj.Data, data) {
		t.Fatalf("stored bytes differ")
	}
	if obj.ContentType != "image/png" {
		t.Fatalf("expected content type image/png, got %q", obj.ContentType)
	}

	resp, err := http.Get(res.URL)
	if err != nil {
		t.Fatalf("get public url: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from public url, got %d", resp.StatusCode)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	fake := testsupport.NewS3Fake()
	defer fake.Close()
	svc := newTestService(t, fake, "us-east-1", Options{})

	_, err := svc.Upload(context.Background(), "anim.gif", "image/gif", strings.NewReader("GIF89a"))
	var media *UnsupportedMediaTypeError
	if !errors.As(err, &media) {
		t.Fatalf("expected UnsupportedMediaTypeError, got %v", err)
	}
	if !IsClientError(err) {
		t.Fatalf("expected client error")
	}

	_, err = svc.Presign(context.Background(), "anim.gif", "image/gif")
	if !errors.As(err, &media) {
		t.Fatalf("expected UnsupportedMediaTypeError from presign, got %v", err)
	}
	if fake.Heads() != 0 {
		t.Fatalf("rejected requests must not touch storage, saw %d HEADs", fake.Heads())
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	fake := testsupport.NewS3Fake()
	defer fake.Close()
	svc := newTestService(t, fake, "us-east-1", Options{MaxBytes: 10})

	_, err := svc.Upload(context.Background(), "big.jpg", "image/jpeg", bytes.NewReader(make([]byte, 11)))
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected TooLargeError, got %v", err)
	}
	if tooLarge.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", tooLarge.Limit)
	}
	if fake.Creates() != 0 {
		t.Fatalf("expected no bucket creation")
	}

	if _, err := svc.Upload(context.Background(), "ok.jpg", "image/jpeg", bytes.NewReader(make([]byte, 10))); err != nil {
		t.Fatalf("upload at limit: %v", err)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	fake := testsupport.NewS3Fake()
	defer fake.Close()
	fake.AddBucket(testBucket)
	fake.FailPuts = true
	svc := newTestService(t, fake, "us-east-1", Options{})

	_, err := svc.Upload(context.Background(), "a.webp", "image/webp", strings.NewReader("RIFF"))
	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if upErr.Op != "put object" {
		t.Fatalf("expected put object op, got %q", upErr.Op)
	}
	if IsClientError(err) {
		t.Fatalf("storage failures are not client errors")
	}
}

func TestPresignRoundTrip(t *testing.T) {
	fake := testsupport.NewS3Fake()
	defer fake.Close()
	svc := newTestService(t, fake, "us-east-1", Options{})
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	p, err := svc.Presign(context.Background(), "cover.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if p.Method != http.MethodPut {
		t.Fatalf("expected PUT, got %q", p.Method)
	}
	if !strings.HasPrefix(p.Key, "story-covers/") || !strings.HasSuffix(p.Key, "-cover.jpg") {
		t.Fatalf("unexpected key %q", p.Key)
	}
	if p.PublicURL != svc.PublicURL(p.Key) {
		t.Fatalf("unexpected public url %q", p.PublicURL)
	}
	if !p.ExpiresAt.Equal(issued.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", p.ExpiresAt)
	}
	if p.Headers["Content-Type"] != "image/jpeg" {
		t.Fatalf("expected signed content type, got %v", p.Headers)
	}
	if _, ok := p.Headers["Host"]; ok {
		t.Fatalf("host must not be returned as a header")
	}

	u, err := url.Parse(p.UploadURL)
	if err != nil {
		t.Fatalf("parse upload url: %v", err)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "300" {
		t.Fatalf("expected X-Amz-Expires=300, got %q", got)
	}

	data := []byte("jpeg bytes")
	req, err := http.NewRequest(p.Method, p.UploadURL, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from signed put, got %d", resp.StatusCode)
	}

	get, err := http.Get(p.PublicURL)
	if err != nil {
		t.Fatalf("get public url: %v", err)
	}
	defer get.Body.Close()
	got, _ := io.ReadAll(get.Body)
	if !bytes.Equal(got, data) {
		t.Fatalf("expected uploaded bytes at public url, got %q", got)
	}

	bucket, _ := fake.Bucket(testBucket)
	if acl := bucket.Objects[p.Key].ACL; acl != "public-read" {
		t.Fatalf("expected public-read acl, got %q", acl)
	}
}

func TestDelete(t *testing.T) {
	fake := testsupport.NewS3Fake()
	defer fake.Close()
	svc := newTestService(t, fake, "us-east-1", Options{})

	res, err := svc.Upload(context.Background(), "gone.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.Delete(context.Background(), res.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	bucket, _ := fake.Bucket(testBucket)
	if _, ok := bucket.Objects[res.Key]; ok {
		t.Fatalf("expected object to be removed")
	}

	for _, key := range []string{"", "avatars/x.png", "story-covers/../secrets", "story-covers"} {
		if err := svc.Delete(context.Background(), key); !errors.Is(err, ErrForeignKey) {
			t.Fatalf("key %q: expected ErrForeignKey, got %v", key, err)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	svc := New(nil, nil, Options{Bucket: "shelf", KeyPrefix: "/covers/"})
	if svc.MaxBytes() != DefaultMaxBytes {
		t.Fatalf("expected default max bytes, got %d", svc.MaxBytes())
	}
	if got := svc.PublicURL("covers/a.png"); got != "https://shelf.s3.amazonaws.com/covers/a.png" {
		t.Fatalf("unexpected public url %q", got)
	}
	if svc.opts.KeyPrefix != "covers" {
		t.Fatalf("expected trimmed prefix, got %q", svc.opts.KeyPrefix)
	}
	if svc.opts.PresignTTL != DefaultPresignTTL {
		t.Fatalf("expected default ttl, got %v", svc.opts.PresignTTL)
	}
}

func TestCheckContentType(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"image/jpeg", "image/jpeg", true},
		{"image/jpg", "image/jpg", true},
		{"IMAGE/PNG", "image/png", true},
		{"image/webp; q=1", "image/webp", true},
		{"image/gif", "", false},
		{"application/pdf", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := CheckContentType(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Errorf("CheckContentType(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"cover.png":        "cover.png",
		"my cover.png":     "my_cover.png",
		"../../etc/passwd": ".._.._etc_passwd",
		"été-2024.webp":    "_t_-2024.webp",
		"   ":              "file",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

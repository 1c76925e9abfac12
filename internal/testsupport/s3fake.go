// Package testsupport holds fakes shared by tests across packages.
package testsupport

import (
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Object is a stored object as seen by the fake.
type Object struct {
	Data        []byte
	ContentType string
	ACL         string
}

// Bucket is a bucket as seen by the fake.
type Bucket struct {
	Policy       string
	CreateConfig string
	Objects      map[string]Object
}

// S3Fake is a path-style, in-memory stand-in for the subset of the S3 REST
// API the upload service uses. Signatures are not checked.
type S3Fake struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
	creates int
	heads   int

	// CreateDelay stretches CreateBucket to widen race windows in tests.
	CreateDelay time.Duration
	// FailPuts makes every object PUT fail with a 500.
	FailPuts bool
	// HeadMissing makes HeadBucket report every bucket as missing.
	HeadMissing bool

	Server *httptest.Server
}

// NewS3Fake starts the fake on a loopback listener. Callers must Close it.
func NewS3Fake() *S3Fake {
	f := &S3Fake{buckets: make(map[string]*Bucket)}
	f.Server = httptest.NewServer(f)
	return f
}

func (f *S3Fake) URL() string { return f.Server.URL }

func (f *S3Fake) Close() { f.Server.Close() }

// AddBucket pre-creates a bucket.
func (f *S3Fake) AddBucket(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[name]; !ok {
		f.buckets[name] = &Bucket{Objects: make(map[string]Object)}
	}
}

// Bucket returns a copy of the named bucket.
func (f *S3Fake) Bucket(name string) (Bucket, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[name]
	if !ok {
		return Bucket{}, false
	}
	cp := Bucket{Policy: b.Policy, CreateConfig: b.CreateConfig, Objects: make(map[string]Object, len(b.Objects))}
	for k, v := range b.Objects {
		cp.Objects[k] = v
	}
	return cp, true
}

// Creates counts CreateBucket calls, including rejected ones.
func (f *S3Fake) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// Heads counts HeadBucket calls.
func (f *S3Fake) Heads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heads
}

func (f *S3Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket == "" {
		writeS3Error(w, http.StatusBadRequest, "InvalidRequest", "bucket required")
		return
	}
	if key == "" {
		f.serveBucket(w, r, bucket)
		return
	}
	f.serveObject(w, r, bucket, key)
}

func (f *S3Fake) serveBucket(w http.ResponseWriter, r *http.Request, name string) {
	switch {
	case r.Method == http.MethodHead:
		f.mu.Lock()
		f.heads++
		_, ok := f.buckets[name]
		missing := !ok || f.HeadMissing
		f.mu.Unlock()
		if missing {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.URL.Query().Has("policy"):
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		b, ok := f.buckets[name]
		if ok {
			b.Policy = string(body)
		}
		f.mu.Unlock()
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		if f.CreateDelay > 0 {
			time.Sleep(f.CreateDelay)
		}
		f.mu.Lock()
		f.creates++
		_, exists := f.buckets[name]
		if !exists {
			f.buckets[name] = &Bucket{CreateConfig: string(body), Objects: make(map[string]Object)}
		}
		f.mu.Unlock()
		if exists {
			writeS3Error(w, http.StatusConflict, "BucketAlreadyOwnedByYou", "Your previous request to create the named bucket succeeded and you already own it.")
			return
		}
		w.Header().Set("Location", "/"+name)
		w.WriteHeader(http.StatusOK)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

func (f *S3Fake) serveObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	f.mu.Lock()
	b, ok := f.buckets[bucket]
	f.mu.Unlock()
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}

	switch r.Method {
	case http.MethodPut:
		if f.FailPuts {
			writeS3Error(w, http.StatusInternalServerError, "InternalError", "we encountered an internal error")
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody", err.Error())
			return
		}
		// Presigned requests carry x-amz-* values in the query.
		acl := r.Header.Get("X-Amz-Acl")
		if acl == "" {
			acl = r.URL.Query().Get("X-Amz-Acl")
		}
		f.mu.Lock()
		b.Objects[key] = Object{Data: data, ContentType: r.Header.Get("Content-Type"), ACL: acl}
		f.mu.Unlock()
		w.Header().Set("ETag", `"fake-etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		f.mu.Lock()
		obj, ok := b.Objects[key]
		f.mu.Unlock()
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(obj.Data)
	case http.MethodDelete:
		f.mu.Lock()
		delete(b.Objects, key)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(s3Error{Code: code, Message: message})
}

// Package cookies is a persistent cookie jar backed by BoltDB.
//
// It plays the role of the browser's cookie store: the HttpOnly refresh
// cookie set by the server survives process restarts here, while the access
// token never does (it lives only in the in-memory session). The jar is a
// plain http.CookieJar, so the HTTP client picks cookies up automatically.
package cookies

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCookies = []byte("cookies")

// storedCookie is the serialized form of one cookie.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"http_only"`
}

// Jar is a host-keyed persistent cookie jar.
type Jar struct {
	mu sync.Mutex
	db *bbolt.DB
}

// Compile-time check that Jar implements http.CookieJar
var _ http.CookieJar = (*Jar)(nil)

// New opens (or creates) a jar at the given path.
func New(path string) (*Jar, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie jar: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCookies)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cookie jar: %w", err)
	}

	return &Jar{db: db}, nil
}

// Close closes the underlying database.
func (j *Jar) Close() error {
	return j.db.Close()
}

// SetCookies stores the response cookies for the URL's host. A cookie with
// MaxAge < 0 or a past expiry deletes the stored entry, which is how the
// server clears the refresh cookie on logout.
func (j *Jar) SetCookies(u *url.URL, cs []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCookies)

		for _, c := range cs {
			key := cookieKey(u.Host, c.Name)

			expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now()))
			if expired || c.Value == "" {
				if err := bucket.Delete(key); err != nil {
					return err
				}
				continue
			}

			expires := c.Expires
			if c.MaxAge > 0 {
				expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
			}

			data, err := json.Marshal(storedCookie{
				Name:     c.Name,
				Value:    c.Value,
				Path:     cookiePath(c.Path),
				Expires:  expires,
				Secure:   c.Secure,
				HttpOnly: c.HttpOnly,
			})
			if err != nil {
				return err
			}

			if err := bucket.Put(key, data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		// http.CookieJar has no error channel; a failed write means the
		// cookie is simply absent on the next request.
		return
	}
}

// Cookies returns the stored cookies matching the URL's host, path and
// scheme. Secure cookies are withheld from plain-HTTP requests, as a
// browser would.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	var result []*http.Cookie
	now := time.Now()

	_ = j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCookies)
		prefix := []byte(u.Host + "|")

		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var sc storedCookie
			if err := json.Unmarshal(v, &sc); err != nil {
				continue
			}

			if !sc.Expires.IsZero() && sc.Expires.Before(now) {
				continue
			}
			if sc.Secure && u.Scheme != "https" {
				continue
			}
			if !pathMatches(sc.Path, u.Path) {
				continue
			}

			result = append(result, &http.Cookie{Name: sc.Name, Value: sc.Value})
		}

		return nil
	})

	return result
}

func cookieKey(host, name string) []byte {
	return []byte(host + "|" + name)
}

func cookiePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// pathMatches implements RFC 6265 path matching.
func pathMatches(cookiePath, requestPath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}
	if cookiePath == requestPath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

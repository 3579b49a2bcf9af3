package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CookieRecordKey is the record holding the backend session cookies.
const CookieRecordKey = "cookies"

type savedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// persistentJar is an in-memory cookie jar whose cookies for the backend
// origin are also written to a record, so a later process can resume the
// server session.
type persistentJar struct {
	origin  *url.URL
	records storage.Store
	log     zerolog.Logger

	mu    sync.Mutex
	inner *cookiejar.Jar
	saved map[string]savedCookie
}

var _ http.CookieJar = (*persistentJar)(nil)

func newPersistentJar(origin *url.URL, records storage.Store, log zerolog.Logger) (*persistentJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	j := &persistentJar{
		origin:  origin,
		records: records,
		log:     log,
		inner:   inner,
		saved:   make(map[string]savedCookie),
	}
	if records != nil {
		j.load()
	}
	return j, nil
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)

	if j.records == nil || u.Host != j.origin.Host {
		return
	}
	now := time.Now()
	for _, c := range cookies {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			delete(j.saved, c.Name)
			continue
		}
		sc := savedCookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires}
		if c.MaxAge > 0 {
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.saved[c.Name] = sc
	}
	j.persistLocked()
}

// Clear forgets every cookie, in memory and on record.
func (j *persistentJar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if inner, err := cookiejar.New(nil); err == nil {
		j.inner = inner
	}
	j.saved = make(map[string]savedCookie)
	if j.records == nil {
		return
	}
	if err := j.records.Delete(context.Background(), CookieRecordKey); err != nil {
		j.log.Error().Err(err).Msg("erase cookie record")
	}
}

func (j *persistentJar) load() {
	b, err := j.records.Get(context.Background(), CookieRecordKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			j.log.Error().Err(err).Msg("read cookie record")
		}
		return
	}
	var saved []savedCookie
	if err := json.Unmarshal(b, &saved); err != nil {
		j.log.Error().Err(err).Msg("decode cookie record")
		return
	}
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		if !sc.Expires.IsZero() && sc.Expires.Before(now) {
			continue
		}
		j.saved[sc.Name] = sc
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: sc.Path, Expires: sc.Expires})
	}
	j.inner.SetCookies(j.origin, cookies)
}

func (j *persistentJar) persistLocked() {
	out := make([]savedCookie, 0, len(j.saved))
	for _, sc := range j.saved {
		out = append(out, sc)
	}
	b, err := json.Marshal(out)
	if err != nil {
		j.log.Error().Err(err).Msg("encode cookie record")
		return
	}
	if err := j.records.Put(context.Background(), CookieRecordKey, b); err != nil {
		j.log.Error().Err(err).Msg("persist cookie record")
	}
}

package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cppla/simpleblog/config"
	"github.com/cppla/simpleblog/middleware"
	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/repository"
	"github.com/cppla/simpleblog/utils"
)

const testSecret = "router-test-secret"

type testApp struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
}

func newTestApp(t *testing.T, mutate ...func(*config.AppConfig)) *testApp {
	t.Helper()
	utils.UseNopLogger()

	cfg := config.AppConfig{
		JWTSecret:          testSecret,
		SessionTTLHours:    24,
		DBDriver:           "sqlite",
		DBPath:             filepath.Join(t.TempDir(), "blog.db"),
		RateLimitPerMinute: 1000,
		GinMode:            "test",
		LogLevel:           "silent",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	db, err := config.OpenDatabase(cfg, &models.User{}, &models.Post{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	router, err := SetupRouter(Deps{
		Config:    cfg,
		DB:        db,
		Users:     repository.NewUserRepository(db),
		Posts:     repository.NewPostRepository(db, nil),
		Hasher:    utils.NewPasswordHasher(bcrypt.MinCost),
		Tokens:    utils.NewTokenService(testSecret),
		Blacklist: utils.NewTokenBlacklist(nil),
	})
	require.NoError(t, err)

	return &testApp{t: t, router: router, db: db}
}

func (a *testApp) do(method, path, session string, form url.Values) *httptest.ResponseRecorder {
	return a.serve(newRequest(method, path, session, form))
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func newRequest(method, path, session string, form url.Values) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session})
	}
	return req
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

// register signs a user up and returns the session token.
func (a *testApp) register(username, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/register", "", url.Values{"username": {username}, "password": {password}})
	require.Equal(a.t, http.StatusFound, w.Code, w.Body.String())
	c := sessionCookie(w)
	require.NotNil(a.t, c)
	return c.Value
}

func (a *testApp) createPost(session, title, body string) uint {
	a.t.Helper()
	w := a.do(http.MethodPost, "/create-post", session, url.Values{"title": {title}, "body": {body}})
	require.Equal(a.t, http.StatusFound, w.Code, w.Body.String())

	var post models.Post
	require.NoError(a.t, a.db.Order("id DESC").First(&post).Error)
	require.Equal(a.t, "/post/"+uintStr(post.ID), w.Header().Get("Location"))
	return post.ID
}

func (a *testApp) loadPost(id uint) models.Post {
	a.t.Helper()
	var post models.Post
	require.NoError(a.t, a.db.First(&post, id).Error)
	return post
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// tamper rewrites the tail of the signature.
func tamper(token string) string {
	suffix := "AAAA"
	if strings.HasSuffix(token, suffix) {
		suffix = "BBBB"
	}
	return token[:len(token)-len(suffix)] + suffix
}

func TestRegisterThenCreatePost(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/register", "", url.Values{"username": {"alice1"}, "password": {"abcdef"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 24*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)

	w = app.do(http.MethodGet, "/", cookie.Value, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You have not written any posts yet")
	assert.NotContains(t, w.Body.String(), `class="post-list"`)

	var alice models.User
	require.NoError(t, app.db.Where("username = ?", "alice1").First(&alice).Error)
	assert.NotEqual(t, "abcdef", alice.PasswordHash)

	id := app.createPost(cookie.Value, "T", "B")
	post := app.loadPost(id)
	assert.Equal(t, alice.ID, post.AuthorID)
	assert.NotEmpty(t, post.CreatedAt)
	_, err := time.Parse(models.CreatedAtLayout, post.CreatedAt)
	assert.NoError(t, err)

	w = app.do(http.MethodGet, "/", cookie.Value, nil)
	assert.Contains(t, w.Body.String(), ">T</a>")
}

func TestAnonymousIsRedirectedHome(t *testing.T) {
	app := newTestApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/create-post"},
		{http.MethodPost, "/create-post"},
		{http.MethodGet, "/post/1"},
		{http.MethodGet, "/edit-post/1"},
		{http.MethodPost, "/edit-post/1"},
		{http.MethodPost, "/delete-post/1"},
	} {
		w := app.do(tc.method, tc.path, "", url.Values{})
		assert.Equal(t, http.StatusFound, w.Code, tc.path)
		assert.Equal(t, "/", w.Header().Get("Location"), tc.path)
	}

	w := app.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/register"`)
}

func TestNonOwnerCannotEditOrDelete(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice1", "abcdef")
	bob := app.register("bob", "abcdef")

	id := app.createPost(alice, "Mine", "Original")
	before := app.loadPost(id)
	path := uintStr(id)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/edit-post/" + path},
		{http.MethodPost, "/edit-post/" + path},
		{http.MethodPost, "/delete-post/" + path},
	} {
		w := app.do(tc.method, tc.path, bob, url.Values{"title": {"Hacked"}, "body": {"Hacked"}})
		assert.Equal(t, http.StatusFound, w.Code, tc.path)
		assert.Equal(t, "/", w.Header().Get("Location"), tc.path)
	}

	assert.Equal(t, before, app.loadPost(id))

	// bob may read it but sees no controls
	w := app.do(http.MethodGet, "/post/"+path, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Original")
	assert.NotContains(t, w.Body.String(), "/delete-post/"+path)

	w = app.do(http.MethodGet, "/post/"+path, alice, nil)
	assert.Contains(t, w.Body.String(), "/delete-post/"+path)
}

func TestMissingPostsRedirectHome(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice1", "abcdef")

	for _, path := range []string{"/post/999", "/post/abc", "/edit-post/999", "/edit-post/-1"} {
		w := app.do(http.MethodGet, path, alice, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/", w.Header().Get("Location"), path)
	}
	w := app.do(http.MethodPost, "/delete-post/999", alice, url.Values{})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestOwnerEditsAndDeletes(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice1", "abcdef")
	id := app.createPost(alice, "T", "B")
	path := uintStr(id)

	w := app.do(http.MethodGet, "/edit-post/"+path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/edit-post/`+path+`"`)

	w = app.do(http.MethodPost, "/edit-post/"+path, alice, url.Values{"title": {"  "}, "body": {"kept body"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You must provide a title")
	assert.Contains(t, w.Body.String(), `action="/edit-post/`+path+`"`)
	assert.Contains(t, w.Body.String(), "kept body")
	assert.Equal(t, "T", app.loadPost(id).Title)

	w = app.do(http.MethodPost, "/edit-post/"+path, alice, url.Values{"title": {"T2"}, "body": {"B2"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/post/"+path, w.Header().Get("Location"))
	updated := app.loadPost(id)
	assert.Equal(t, "T2", updated.Title)
	assert.Equal(t, "B2", updated.Body)

	w = app.do(http.MethodPost, "/delete-post/"+path, alice, url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var n int64
	require.NoError(t, app.db.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreatePostSanitizes(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice1", "abcdef")

	id := app.createPost(alice, " Hello ", "<script>x</script>Body")
	post := app.loadPost(id)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "Body", post.Body)

	w := app.do(http.MethodGet, "/post/"+uintStr(id), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<script")
	assert.Contains(t, w.Body.String(), "<p>Body</p>")
}

func TestCreatePostValidation(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice1", "abcdef")

	w := app.do(http.MethodPost, "/create-post", alice, url.Values{"title": {""}, "body": {"<b></b>"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You must provide a title")
	assert.Contains(t, w.Body.String(), "You must provide a body")

	var n int64
	require.NoError(t, app.db.Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	app := newTestApp(t)
	app.register("alice1", "abcdef")

	for _, form := range []url.Values{
		{"username": {""}, "password": {"abcdef"}},
		{"username": {"alice1"}, "password": {""}},
		{"username": {"nobody"}, "password": {"abcdef"}},
		{"username": {"alice1"}, "password": {"wrong"}},
	} {
		w := app.do(http.MethodPost, "/login", "", form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, strings.Count(w.Body.String(), "Invalid Credentials"), form.Encode())
		assert.Nil(t, sessionCookie(w))
	}

	w := app.do(http.MethodPost, "/login", "", url.Values{"username": {" alice1 "}, "password": {"abcdef"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.NotNil(t, sessionCookie(w))
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	app.register("alice1", "abcdef")

	w := app.do(http.MethodPost, "/register", "", url.Values{"username": {"alice1"}, "password": {"abcdef"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "That username is already taken")
	assert.Nil(t, sessionCookie(w))

	var n int64
	require.NoError(t, app.db.Model(&models.User{}).Where("username = ?", "alice1").Count(&n).Error)
	assert.EqualValues(t, 1, n)

	for _, name := range []string{"ab", "abcdefghijk", "bad name!"} {
		w := app.do(http.MethodPost, "/register", "", url.Values{"username": {name}, "password": {"abcdef"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `class="errors"`, name)
		require.NoError(t, app.db.Model(&models.User{}).Where("username = ?", name).Count(&n).Error)
		assert.Zero(t, n, name)
	}
}

func TestInvalidSessionIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	good := app.register("alice1", "abcdef")

	expired, _, err := utils.NewTokenService(testSecret, utils.WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	})).Issue(1, "alice1", 24*time.Hour)
	require.NoError(t, err)
	forged, _, err := utils.NewTokenService("not-the-secret").Issue(1, "alice1", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"tampered": tamper(good),
		"expired":  expired,
		"forged":   forged,
		"garbage":  "x.y.z",
	} {
		w := app.do(http.MethodGet, "/create-post", token, nil)
		assert.Equal(t, http.StatusFound, w.Code, name)
		assert.Equal(t, "/", w.Header().Get("Location"), name)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t)
	session := app.register("alice1", "abcdef")

	w := app.do(http.MethodGet, "/create-post", session, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/logout", session, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cleared := sessionCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	w = app.do(http.MethodGet, "/create-post", session, nil)
	assert.Equal(t, http.StatusFound, w.Code, "the old token no longer works")

	w = app.do(http.MethodGet, "/logout", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestHealthStaticAndNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotContains(t, w.Body.String(), "count")
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))

	w = app.do(http.MethodGet, "/static/style.css", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/no/such/page", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}

func TestCredentialEndpointsAreRateLimited(t *testing.T) {
	app := newTestApp(t, func(cfg *config.AppConfig) { cfg.RateLimitPerMinute = 2 })

	form := url.Values{"username": {"nobody"}, "password": {"x"}}
	assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/login", "", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, app.do(http.MethodPost, "/login", "", form).Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/login", "", nil).Code, "only submissions are limited")
}

func TestSessionForDeletedUserIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	ghost, _, err := utils.NewTokenService(testSecret).Issue(42, "ghost", time.Hour)
	require.NoError(t, err)

	w := app.do(http.MethodPost, "/create-post", ghost, url.Values{"title": {"T"}, "body": {"B"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/create-post", ghost, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var n int64
	require.NoError(t, app.db.Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)

	w = app.do(http.MethodGet, "/", ghost, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitIgnoresForwardedForFromClients(t *testing.T) {
	app := newTestApp(t, func(cfg *config.AppConfig) { cfg.RateLimitPerMinute = 2 })

	form := url.Values{"username": {"nobody"}, "password": {"x"}}
	limited := 0
	for i := 0; i < 10; i++ {
		req := newRequest(http.MethodPost, "/login", "", form)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		if app.serve(req).Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 9, limited, "spoofed headers must not open new buckets")
}

func TestRateLimitHonorsTrustedProxy(t *testing.T) {
	app := newTestApp(t, func(cfg *config.AppConfig) {
		cfg.RateLimitPerMinute = 2
		cfg.TrustedProxies = []string{"192.0.2.1"}
	})

	form := url.Values{"username": {"nobody"}, "password": {"x"}}
	for i := 0; i < 3; i++ {
		req := newRequest(http.MethodPost, "/login", "", form)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		assert.Equal(t, http.StatusOK, app.serve(req).Code, "distinct clients behind the proxy")
	}

	req := newRequest(http.MethodPost, "/login", "", form)
	req.Header.Set("X-Forwarded-For", "10.0.0.0")
	assert.Equal(t, http.StatusTooManyRequests, app.serve(req).Code)
}

func TestInsecureCookieForPlainHTTP(t *testing.T) {
	app := newTestApp(t, func(cfg *config.AppConfig) { cfg.CookieInsecure = true })
	w := app.do(http.MethodPost, "/register", "", url.Values{"username": {"alice1"}, "password": {"abcdef"}})
	require.Equal(t, http.StatusFound, w.Code)
	c := sessionCookie(w)
	require.NotNil(t, c)
	assert.False(t, c.Secure)
	assert.True(t, c.HttpOnly)
}

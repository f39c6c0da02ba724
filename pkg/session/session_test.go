package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/jsonrpc"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
	"github.com/denysvitali/ipos-browser-go/pkg/storage"
	"github.com/denysvitali/ipos-browser-go/version"
)

const serverUIVersion = "2024-05-01T10:00:00Z"

type recordedCall struct {
	Method string
	Params map[string]interface{}
	Header http.Header
}

// fakeWebRPC emulates the server side of the Web service
type fakeWebRPC struct {
	*httptest.Server

	mu    sync.Mutex
	calls []recordedCall

	// reply builds the response for a method; status 0 means 200
	reply func(method string, params map[string]interface{}) (status int, body string)
}

func newFakeWebRPC(t *testing.T) *fakeWebRPC {
	f := &fakeWebRPC{}
	f.reply = func(method string, params map[string]interface{}) (int, string) {
		switch method {
		case "Web.Login", "Web.LoginSTS", "Web.SetAuth":
			return 0, resultBody(map[string]interface{}{"token": "tok-" + strings.TrimPrefix(method, "Web.")})
		case "Web.CreateURLToken":
			return 0, resultBody(map[string]interface{}{"token": "url-token"})
		default:
			return 0, resultBody(map[string]interface{}{})
		}
	}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string                 `json:"method"`
			Params map[string]interface{} `json:"params"`
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: req.Method, Params: req.Params, Header: r.Header.Clone()})
		reply := f.reply
		f.mu.Unlock()

		status, body := reply(req.Method, req.Params)
		if status != 0 {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeWebRPC) setReply(reply func(method string, params map[string]interface{}) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

func (f *fakeWebRPC) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeWebRPC) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func resultBody(result map[string]interface{}) string {
	return resultBodyVersion(result, serverUIVersion)
}

func resultBodyVersion(result map[string]interface{}, uiVersion string) string {
	result["uiVersion"] = uiVersion
	data, _ := json.Marshal(map[string]interface{}{"id": 1, "jsonrpc": "2.0", "result": result})
	return string(data)
}

type reloadCounter struct {
	mu      sync.Mutex
	reasons []session.ReloadReason
}

func (r *reloadCounter) Reload(reason session.ReloadReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *reloadCounter) count(reason session.ReloadReason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.reasons {
		if got == reason {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, f *fakeWebRPC, opts ...session.Option) (*session.Session, storage.Store, *reloadCounter) {
	store := storage.NewMemoryStore()
	reloads := &reloadCounter{}
	opts = append([]session.Option{
		session.WithPrefix(""),
		session.WithReloader(reloads),
		session.WithUIVersion(serverUIVersion),
	}, opts...)
	// the fake server listens on /, so the RPC path is /webrpc
	s, err := session.New(f.URL, store, opts...)
	require.NoError(t, err)
	return s, store, reloads
}

func TestNew(t *testing.T) {
	s, err := session.New("http://localhost:9000", storage.NewMemoryStore())
	require.NoError(t, err)
	ep := s.Endpoint()
	assert.Equal(t, "http", ep.Scheme)
	assert.Equal(t, "localhost", ep.Host)
	assert.Equal(t, 9000, ep.Port)
	assert.Equal(t, "/ipos/webrpc", ep.Path)
	assert.Equal(t, version.UIVersion, s.Baseline())

	_, err = session.New("htt://localhost:9000", storage.NewMemoryStore())
	assert.ErrorIs(t, err, jsonrpc.ErrInvalidEndpoint)

	_, err = session.New("http://localhost:9000", nil)
	assert.Error(t, err)
}

func TestLoginLogout(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, _ := newTestSession(t, f)
	ctx := context.Background()

	assert.False(t, s.LoggedIn())
	assert.Equal(t, session.StateLoggedOut, s.State())

	reply, err := s.Login(ctx, models.LoginArgs{Username: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, "tok-Login", reply.Token)

	call := f.lastCall()
	assert.Equal(t, "Web.Login", call.Method)
	assert.Equal(t, "a", call.Params["username"])
	assert.Equal(t, "b", call.Params["password"])
	assert.Empty(t, call.Header.Get("Authorization"))

	assert.True(t, s.LoggedIn())
	assert.Equal(t, "tok-Login", s.GetToken())
	assert.Equal(t, session.StateLoggedIn, s.State())

	before := f.callCount()
	require.NoError(t, s.Logout())
	assert.False(t, s.LoggedIn())
	assert.Equal(t, "", s.GetToken())
	assert.Equal(t, before, f.callCount(), "Logout and LoggedIn must not hit the network")
}

func TestTokenIssuingCalls(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, _ := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.LoginSTS(ctx, models.LoginSTSArgs{Token: "id-token"})
	require.NoError(t, err)
	assert.Equal(t, "tok-LoginSTS", s.GetToken())
	assert.Equal(t, "id-token", f.lastCall().Params["token"])

	_, err = s.SetAuth(ctx, models.SetAuthArgs{CurrentAccessKey: "a", CurrentSecretKey: "b", NewAccessKey: "a", NewSecretKey: "c"})
	require.NoError(t, err)
	assert.Equal(t, "tok-SetAuth", s.GetToken())
	assert.Equal(t, "Bearer tok-LoginSTS", f.lastCall().Header.Get("Authorization"))
}

func TestTypedMethodsForwardParams(t *testing.T) {
	f := newFakeWebRPC(t)
	s, store, _ := newTestSession(t, f)
	ctx := context.Background()
	require.NoError(t, store.Set(storage.KeyToken, "abc"))

	tests := []struct {
		name   string
		method string
		call   func() error
		params map[string]interface{}
	}{
		{"ListObjects", "Web.ListObjects", func() error {
			_, err := s.ListObjects(ctx, models.ListObjectsArgs{BucketName: "b", Prefix: "p/", Marker: "m"})
			return err
		}, map[string]interface{}{"bucketName": "b", "prefix": "p/", "marker": "m"}},
		{"MakeBucket", "Web.MakeBucket", func() error {
			_, err := s.MakeBucket(ctx, models.BucketArgs{BucketName: "b"})
			return err
		}, map[string]interface{}{"bucketName": "b"}},
		{"DeleteBucket", "Web.DeleteBucket", func() error {
			_, err := s.DeleteBucket(ctx, models.BucketArgs{BucketName: "b"})
			return err
		}, map[string]interface{}{"bucketName": "b"}},
		{"ListBuckets", "Web.ListBuckets", func() error {
			_, err := s.ListBuckets(ctx)
			return err
		}, map[string]interface{}{}},
		{"ServerInfo", "Web.ServerInfo", func() error {
			_, err := s.ServerInfo(ctx)
			return err
		}, map[string]interface{}{}},
		{"StorageInfo", "Web.StorageInfo", func() error {
			_, err := s.StorageInfo(ctx)
			return err
		}, map[string]interface{}{}},
		{"GetDiscoveryDoc", "Web.GetDiscoveryDoc", func() error {
			_, err := s.GetDiscoveryDoc(ctx)
			return err
		}, map[string]interface{}{}},
		{"PresignedGet", "Web.PresignedGet", func() error {
			_, err := s.PresignedGet(ctx, models.PresignedGetArgs{HostName: "h", BucketName: "b", ObjectName: "o", Expiry: 60})
			return err
		}, map[string]interface{}{"host": "h", "bucket": "b", "object": "o", "expiry": float64(60)}},
		{"PutObjectURL", "Web.PutObjectURL", func() error {
			_, err := s.PutObjectURL(ctx, models.PutObjectURLArgs{TargetHost: "h", TargetProto: "https:", BucketName: "b", ObjectName: "o"})
			return err
		}, map[string]interface{}{"targetHost": "h", "targetProto": "https:", "bucketName": "b", "objectName": "o"}},
		{"RemoveObject", "Web.RemoveObject", func() error {
			_, err := s.RemoveObject(ctx, models.RemoveObjectArgs{BucketName: "b", Objects: []string{"x"}})
			return err
		}, map[string]interface{}{"bucketname": "b", "objects": []interface{}{"x"}}},
		{"CreateURLToken", "Web.CreateURLToken", func() error {
			_, err := s.CreateURLToken(ctx)
			return err
		}, map[string]interface{}{}},
		{"GetBucketPolicy", "Web.GetBucketPolicy", func() error {
			_, err := s.GetBucketPolicy(ctx, models.GetBucketPolicyArgs{BucketName: "b", Prefix: "p"})
			return err
		}, map[string]interface{}{"bucketName": "b", "prefix": "p"}},
		{"SetBucketPolicy", "Web.SetBucketPolicy", func() error {
			_, err := s.SetBucketPolicy(ctx, models.SetBucketPolicyArgs{BucketName: "b", Prefix: "p", Policy: models.PolicyReadOnly})
			return err
		}, map[string]interface{}{"bucketName": "b", "prefix": "p", "policy": "readonly"}},
		{"ListAllBucketPolicies", "Web.ListAllBucketPolicies", func() error {
			_, err := s.ListAllBucketPolicies(ctx, models.ListAllBucketPoliciesArgs{BucketName: "b"})
			return err
		}, map[string]interface{}{"bucketName": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			call := f.lastCall()
			assert.Equal(t, tt.method, call.Method)
			assert.Equal(t, tt.params, call.Params)
			assert.Equal(t, "Bearer abc", call.Header.Get("Authorization"))
			assert.NotEmpty(t, call.Header.Get("x-amz-date"))
		})
	}
}

func TestTypedReplies(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, _ := newTestSession(t, f)
	f.setReply(func(method string, params map[string]interface{}) (int, string) {
		return 0, resultBody(map[string]interface{}{
			"buckets": []interface{}{
				map[string]interface{}{"name": "photos", "creationDate": "2024-01-01T00:00:00Z"},
			},
		})
	})

	reply, err := s.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, reply.Buckets, 1)
	assert.Equal(t, "photos", reply.Buckets[0].Name)
	assert.Equal(t, serverUIVersion, reply.UIVersion)

	raw, err := s.Call(context.Background(), "ListBuckets", nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"photos"`)
}

func TestRPCErrorIsVerbatim(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, reloads := newTestSession(t, f)
	f.setReply(func(string, map[string]interface{}) (int, string) {
		return 0, `{"id":1,"jsonrpc":"2.0","error":{"code":-32000,"message":"Bucket not empty: X"}}`
	})

	_, err := s.DeleteBucket(context.Background(), models.BucketArgs{BucketName: "b"})
	require.Error(t, err)
	assert.Equal(t, "Bucket not empty: X", err.Error())

	var rpcErr *session.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
	assert.Equal(t, 0, reloads.count(session.ReloadVersionSkew))
}

func TestAuthExpired(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, reloads := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.Login(ctx, models.LoginArgs{Username: "a", Password: "b"})
	require.NoError(t, err)

	f.setReply(func(string, map[string]interface{}) (int, string) {
		return http.StatusUnauthorized, ""
	})

	const concurrent = 16
	var wg sync.WaitGroup
	var expired atomic.Int32
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ListBuckets(ctx)
			if errors.Is(err, session.ErrAuthExpired) {
				expired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(concurrent), expired.Load())
	assert.False(t, s.LoggedIn())
	assert.Equal(t, 1, reloads.count(session.ReloadAuthExpired))

	_, err = s.ListBuckets(ctx)
	assert.EqualError(t, err, "Please re-login.")
	assert.Equal(t, 1, reloads.count(session.ReloadAuthExpired))

	t.Run("re-armed by login", func(t *testing.T) {
		f.setReply(func(method string, params map[string]interface{}) (int, string) {
			return 0, resultBody(map[string]interface{}{"token": "fresh"})
		})
		_, err := s.Login(ctx, models.LoginArgs{Username: "a", Password: "b"})
		require.NoError(t, err)

		f.setReply(func(string, map[string]interface{}) (int, string) {
			return http.StatusUnauthorized, ""
		})
		_, err = s.ListBuckets(ctx)
		assert.ErrorIs(t, err, session.ErrAuthExpired)
		assert.Equal(t, 2, reloads.count(session.ReloadAuthExpired))
	})
}

func TestServerErrorAndUnreachable(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, reloads := newTestSession(t, f)
	ctx := context.Background()

	f.setReply(func(string, map[string]interface{}) (int, string) {
		return http.StatusInternalServerError, "boom"
	})
	_, err := s.ServerInfo(ctx)
	var serverErr *session.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Equal(t, "Server returned error [500]", err.Error())
	assert.False(t, errors.Is(err, session.ErrUnreachable))

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	unreachable, err := session.New(url, storage.NewMemoryStore(), session.WithPrefix(""))
	require.NoError(t, err)
	_, err = unreachable.ServerInfo(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrUnreachable)
	assert.Equal(t, "IPOS server is unreachable", err.Error())
	assert.False(t, errors.As(err, &serverErr))

	assert.Equal(t, 0, reloads.count(session.ReloadAuthExpired))
}

func TestProtocolErrors(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, reloads := newTestSession(t, f)
	ctx := context.Background()

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"invalid uiVersion", `{"id":1,"jsonrpc":"2.0","result":{"uiVersion":"not-a-date"}}`, "Invalid UI version in the JSON-RPC response"},
		{"missing uiVersion", `{"id":1,"jsonrpc":"2.0","result":{}}`, "Invalid UI version in the JSON-RPC response"},
		{"missing result", `{"id":1,"jsonrpc":"2.0"}`, "Invalid UI version in the JSON-RPC response"},
		{"not json", `<html></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			f.setReply(func(string, map[string]interface{}) (int, string) { return 0, body })

			_, err := s.ServerInfo(ctx)
			var protoErr *session.ProtocolError
			require.ErrorAs(t, err, &protoErr)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}
	assert.Equal(t, 0, reloads.count(session.ReloadVersionSkew))
	assert.False(t, s.Stale())
}

func TestVersionSkew(t *testing.T) {
	ctx := context.Background()

	t.Run("matching version does not reload", func(t *testing.T) {
		f := newFakeWebRPC(t)
		s, store, reloads := newTestSession(t, f)

		_, err := s.ServerInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, reloads.count(session.ReloadVersionSkew))
		assert.False(t, s.Stale())
		_, ok, _ := store.Get(storage.KeyNewlyUpdated)
		assert.False(t, ok)
	})

	t.Run("mismatch reloads exactly once", func(t *testing.T) {
		f := newFakeWebRPC(t)
		s, store, reloads := newTestSession(t, f, session.WithUIVersion("2023-01-01T00:00:00Z"))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reply, err := s.ServerInfo(ctx)
				assert.NoError(t, err)
				if reply != nil {
					assert.Equal(t, serverUIVersion, reply.UIVersion)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, reloads.count(session.ReloadVersionSkew))
		assert.True(t, s.Stale())
		v, ok, err := store.Get(storage.KeyNewlyUpdated)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "true", v)

		_, err = s.ServerInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, reloads.count(session.ReloadVersionSkew))

		updated, err := s.NewlyUpdated()
		require.NoError(t, err)
		assert.True(t, updated)
		updated, err = s.NewlyUpdated()
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("placeholder baseline skips the check", func(t *testing.T) {
		f := newFakeWebRPC(t)
		s, _, reloads := newTestSession(t, f, session.WithUIVersion(version.UIVersionPlaceholder))

		_, err := s.ServerInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, reloads.count(session.ReloadVersionSkew))
		assert.False(t, s.Stale())
	})
}

func TestParseUIVersion(t *testing.T) {
	for _, v := range []string{"2024-05-01T10:00:00Z", "2024-05-01T10:00:00.123+02:00", "2024-05-01T10:00:00", "2024-05-01"} {
		_, ok := session.ParseUIVersion(v)
		assert.True(t, ok, v)
	}
	for _, v := range []string{"", "IPOS_UI_VERSION", "yesterday", "2024-13-45"} {
		_, ok := session.ParseUIVersion(v)
		assert.False(t, ok, v)
	}
}

func TestAuthExpiredKeepsTokenFromConcurrentLogin(t *testing.T) {
	f := newFakeWebRPC(t)
	s, store, reloads := newTestSession(t, f)
	ctx := context.Background()

	_, err := s.Login(ctx, models.LoginArgs{Username: "a", Password: "b"})
	require.NoError(t, err)

	// a login completes while the request with the old token is in flight
	f.setReply(func(string, map[string]interface{}) (int, string) {
		_ = store.Set(storage.KeyToken, "fresh")
		return http.StatusUnauthorized, ""
	})

	_, err = s.ListBuckets(ctx)
	assert.ErrorIs(t, err, session.ErrAuthExpired)
	assert.Equal(t, "Bearer tok-Login", f.lastCall().Header.Get("Authorization"))
	assert.Equal(t, "fresh", s.GetToken())
	assert.Equal(t, 0, reloads.count(session.ReloadAuthExpired))

	// the fresh token is cleared once it is rejected itself
	f.setReply(func(string, map[string]interface{}) (int, string) {
		return http.StatusUnauthorized, ""
	})
	_, err = s.ListBuckets(ctx)
	assert.ErrorIs(t, err, session.ErrAuthExpired)
	assert.False(t, s.LoggedIn())
	assert.Equal(t, 1, reloads.count(session.ReloadAuthExpired))
}

func TestTokenIssuingCallsRequireToken(t *testing.T) {
	f := newFakeWebRPC(t)
	s, _, _ := newTestSession(t, f)
	ctx := context.Background()
	f.setReply(func(string, map[string]interface{}) (int, string) {
		return 0, resultBody(map[string]interface{}{"token": ""})
	})

	tests := []struct {
		name string
		call func() error
	}{
		{"Login", func() error {
			_, err := s.Login(ctx, models.LoginArgs{Username: "a", Password: "b"})
			return err
		}},
		{"LoginSTS", func() error {
			_, err := s.LoginSTS(ctx, models.LoginSTSArgs{Token: "id"})
			return err
		}},
		{"SetAuth", func() error {
			_, err := s.SetAuth(ctx, models.SetAuthArgs{NewAccessKey: "a", NewSecretKey: "b"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var protoErr *session.ProtocolError
			require.ErrorAs(t, err, &protoErr)
			assert.Equal(t, "missing token in "+tt.name+" reply", err.Error())
			assert.False(t, s.LoggedIn())
		})
	}
}

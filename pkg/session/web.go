package session

import (
	"context"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/storage"
)

// LoggedIn reports whether a non-empty token is stored. It performs no
// network call.
func (s *Session) LoggedIn() bool {
	return s.GetToken() != ""
}

// GetToken returns the stored token, or "" when logged out
func (s *Session) GetToken() string {
	token, ok, err := s.store.Get(storage.KeyToken)
	if err != nil {
		s.logger.Warnf("Failed to read session token: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// Logout clears the stored token. It performs no network call.
func (s *Session) Logout() error {
	return s.store.Remove(storage.KeyToken)
}

// Login authenticates with access/secret key and stores the issued token
func (s *Session) Login(ctx context.Context, args models.LoginArgs) (*models.LoginReply, error) {
	var reply models.LoginReply
	if err := s.invoke(ctx, "Login", args, &reply); err != nil {
		return nil, err
	}
	if err := s.storeToken("Login", reply.Token); err != nil {
		return nil, err
	}
	return &reply, nil
}

// LoginSTS exchanges an OpenID id_token for a session token and stores it
func (s *Session) LoginSTS(ctx context.Context, args models.LoginSTSArgs) (*models.LoginReply, error) {
	var reply models.LoginReply
	if err := s.invoke(ctx, "LoginSTS", args, &reply); err != nil {
		return nil, err
	}
	if err := s.storeToken("LoginSTS", reply.Token); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SetAuth changes the credentials of the current user and stores the token
// issued for the new credentials.
func (s *Session) SetAuth(ctx context.Context, args models.SetAuthArgs) (*models.SetAuthReply, error) {
	var reply models.SetAuthReply
	if err := s.invoke(ctx, "SetAuth", args, &reply); err != nil {
		return nil, err
	}
	if err := s.storeToken("SetAuth", reply.Token); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) GetDiscoveryDoc(ctx context.Context) (*models.DiscoveryDocReply, error) {
	var reply models.DiscoveryDocReply
	if err := s.invoke(ctx, "GetDiscoveryDoc", nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) ServerInfo(ctx context.Context) (*models.ServerInfoReply, error) {
	var reply models.ServerInfoReply
	if err := s.invoke(ctx, "ServerInfo", nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) StorageInfo(ctx context.Context) (*models.StorageInfoReply, error) {
	var reply models.StorageInfoReply
	if err := s.invoke(ctx, "StorageInfo", nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) ListBuckets(ctx context.Context) (*models.ListBucketsReply, error) {
	var reply models.ListBucketsReply
	if err := s.invoke(ctx, "ListBuckets", nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) MakeBucket(ctx context.Context, args models.BucketArgs) (*models.GenericReply, error) {
	var reply models.GenericReply
	if err := s.invoke(ctx, "MakeBucket", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) DeleteBucket(ctx context.Context, args models.BucketArgs) (*models.GenericReply, error) {
	var reply models.GenericReply
	if err := s.invoke(ctx, "DeleteBucket", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) ListObjects(ctx context.Context, args models.ListObjectsArgs) (*models.ListObjectsReply, error) {
	var reply models.ListObjectsReply
	if err := s.invoke(ctx, "ListObjects", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) PresignedGet(ctx context.Context, args models.PresignedGetArgs) (*models.PresignedGetReply, error) {
	var reply models.PresignedGetReply
	if err := s.invoke(ctx, "PresignedGet", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) PutObjectURL(ctx context.Context, args models.PutObjectURLArgs) (*models.PutObjectURLReply, error) {
	var reply models.PutObjectURLReply
	if err := s.invoke(ctx, "PutObjectURL", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) RemoveObject(ctx context.Context, args models.RemoveObjectArgs) (*models.GenericReply, error) {
	var reply models.GenericReply
	if err := s.invoke(ctx, "RemoveObject", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// CreateURLToken issues a short-lived token usable in download URLs
func (s *Session) CreateURLToken(ctx context.Context) (*models.URLTokenReply, error) {
	var reply models.URLTokenReply
	if err := s.invoke(ctx, "CreateURLToken", nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) GetBucketPolicy(ctx context.Context, args models.GetBucketPolicyArgs) (*models.GetBucketPolicyReply, error) {
	var reply models.GetBucketPolicyReply
	if err := s.invoke(ctx, "GetBucketPolicy", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) SetBucketPolicy(ctx context.Context, args models.SetBucketPolicyArgs) (*models.GenericReply, error) {
	var reply models.GenericReply
	if err := s.invoke(ctx, "SetBucketPolicy", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Session) ListAllBucketPolicies(ctx context.Context, args models.ListAllBucketPoliciesArgs) (*models.ListAllBucketPoliciesReply, error) {
	var reply models.ListAllBucketPoliciesReply
	if err := s.invoke(ctx, "ListAllBucketPolicies", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

package models

import (
	"encoding/json"
	"time"
)

// Arguments and replies of the "Web" JSON-RPC service. Every reply carries
// the server's UI version marker.

// GenericReply is returned by calls with no payload of their own
type GenericReply struct {
	UIVersion string `json:"uiVersion"`
}

// LoginArgs holds credentials for Web.Login
type LoginArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginReply is returned by Web.Login and Web.LoginSTS
type LoginReply struct {
	Token     string `json:"token"`
	UIVersion string `json:"uiVersion"`
}

// LoginSTSArgs carries an OpenID id_token for Web.LoginSTS
type LoginSTSArgs struct {
	Token string `json:"token"`
}

// DiscoveryDocReply is returned by Web.GetDiscoveryDoc
type DiscoveryDocReply struct {
	DiscoveryDoc map[string]interface{} `json:"DiscoveryDoc,omitempty"`
	ClientID     string                 `json:"clientId,omitempty"`
	UIVersion    string                 `json:"uiVersion"`
}

// ServerInfoReply is returned by Web.ServerInfo
type ServerInfoReply struct {
	IPOSVersion    string                 `json:"IPOSVersion"`
	IPOSMemory     string                 `json:"IPOSMemory"`
	IPOSPlatform   string                 `json:"IPOSPlatform"`
	IPOSRuntime    string                 `json:"IPOSRuntime"`
	IPOSGlobalInfo map[string]interface{} `json:"IPOSGlobalInfo,omitempty"`
	IPOSUserInfo   map[string]interface{} `json:"IPOSUserInfo,omitempty"`
	UIVersion      string                 `json:"uiVersion"`
}

// StorageInfoReply is returned by Web.StorageInfo. The storage details are
// backend specific and kept raw.
type StorageInfoReply struct {
	StorageInfo json.RawMessage `json:"storageInfo"`
	UIVersion   string          `json:"uiVersion"`
}

// BucketInfo describes a single bucket
type BucketInfo struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creationDate"`
}

// ListBucketsReply is returned by Web.ListBuckets
type ListBucketsReply struct {
	Buckets   []BucketInfo `json:"buckets"`
	UIVersion string       `json:"uiVersion"`
}

// BucketArgs names a bucket for Web.MakeBucket and Web.DeleteBucket
type BucketArgs struct {
	BucketName string `json:"bucketName"`
}

// ListObjectsArgs represents the request to list objects
type ListObjectsArgs struct {
	BucketName string `json:"bucketName"`
	Prefix     string `json:"prefix"`
	Marker     string `json:"marker"`
}

// ObjectInfo describes a single object or common prefix
type ObjectInfo struct {
	Key          string    `json:"name"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
}

// ListObjectsReply is returned by Web.ListObjects
type ListObjectsReply struct {
	Objects   []ObjectInfo `json:"objects"`
	Writable  bool         `json:"writable"`
	UIVersion string       `json:"uiVersion"`
}

// RemoveObjectArgs represents a bulk object removal
type RemoveObjectArgs struct {
	Objects    []string `json:"objects"`
	BucketName string   `json:"bucketname"`
}

// PresignedGetArgs represents a presigned download request
type PresignedGetArgs struct {
	HostName   string `json:"host"`
	BucketName string `json:"bucket"`
	ObjectName string `json:"object"`
	// Expiry in seconds
	Expiry int64 `json:"expiry"`
}

// PresignedGetReply is returned by Web.PresignedGet
type PresignedGetReply struct {
	URL       string `json:"url"`
	UIVersion string `json:"uiVersion"`
}

// PutObjectURLArgs represents a presigned upload request
type PutObjectURLArgs struct {
	TargetHost  string `json:"targetHost"`
	TargetProto string `json:"targetProto"`
	BucketName  string `json:"bucketName"`
	ObjectName  string `json:"objectName"`
}

// PutObjectURLReply is returned by Web.PutObjectURL
type PutObjectURLReply struct {
	URL       string `json:"url"`
	UIVersion string `json:"uiVersion"`
}

// SetAuthArgs represents a credential change
type SetAuthArgs struct {
	CurrentAccessKey string `json:"currentAccessKey"`
	CurrentSecretKey string `json:"currentSecretKey"`
	NewAccessKey     string `json:"newAccessKey"`
	NewSecretKey     string `json:"newSecretKey"`
}

// SetAuthReply is returned by Web.SetAuth
type SetAuthReply struct {
	Token       string            `json:"token"`
	PeerErrMsgs map[string]string `json:"peerErrMsgs,omitempty"`
	UIVersion   string            `json:"uiVersion"`
}

// URLTokenReply is returned by Web.CreateURLToken
type URLTokenReply struct {
	Token     string `json:"token"`
	UIVersion string `json:"uiVersion"`
}

// BucketPolicy is one of the canned policies understood by the server
type BucketPolicy string

const (
	PolicyNone      BucketPolicy = "none"
	PolicyReadOnly  BucketPolicy = "readonly"
	PolicyWriteOnly BucketPolicy = "writeonly"
	PolicyReadWrite BucketPolicy = "readwrite"
)

// Valid reports whether p is a known canned policy
func (p BucketPolicy) Valid() bool {
	switch p {
	case PolicyNone, PolicyReadOnly, PolicyWriteOnly, PolicyReadWrite:
		return true
	}
	return false
}

// GetBucketPolicyArgs represents a policy lookup for a bucket prefix
type GetBucketPolicyArgs struct {
	BucketName string `json:"bucketName"`
	Prefix     string `json:"prefix"`
}

// GetBucketPolicyReply is returned by Web.GetBucketPolicy
type GetBucketPolicyReply struct {
	Policy    BucketPolicy `json:"policy"`
	UIVersion string       `json:"uiVersion"`
}

// SetBucketPolicyArgs represents a policy change for a bucket prefix
type SetBucketPolicyArgs struct {
	BucketName string       `json:"bucketName"`
	Prefix     string       `json:"prefix"`
	Policy     BucketPolicy `json:"policy"`
}

// ListAllBucketPoliciesArgs names the bucket whose policies are listed
type ListAllBucketPoliciesArgs struct {
	BucketName string `json:"bucketName"`
}

// BucketAccessPolicy is one prefix policy entry
type BucketAccessPolicy struct {
	Bucket string       `json:"bucket"`
	Prefix string       `json:"prefix"`
	Policy BucketPolicy `json:"policy"`
}

// ListAllBucketPoliciesReply is returned by Web.ListAllBucketPolicies
type ListAllBucketPoliciesReply struct {
	Policies  []BucketAccessPolicy `json:"policies"`
	UIVersion string               `json:"uiVersion"`
}

// DownloadZipArgs selects objects to download as a single zip archive
type DownloadZipArgs struct {
	BucketName string   `json:"bucketname"`
	Prefix     string   `json:"prefix"`
	Objects    []string `json:"objects"`
}

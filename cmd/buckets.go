package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
)

var serverInfoCmd = &cobra.Command{
	Use:   "server-info",
	Short: "Show server version and platform",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		reply, err := sess.ServerInfo(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

var storageInfoCmd = &cobra.Command{
	Use:   "storage-info",
	Short: "Show storage backend usage",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		reply, err := sess.StorageInfo(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List buckets",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		reply, err := sess.ListBuckets(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, reply.Buckets)
	}),
}

var makeBucketCmd = &cobra.Command{
	Use:   "mb BUCKET",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		_, err := sess.MakeBucket(cmd.Context(), models.BucketArgs{BucketName: args[0]})
		return err
	}),
}

var removeBucketCmd = &cobra.Command{
	Use:   "rb BUCKET",
	Short: "Delete an empty bucket",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		_, err := sess.DeleteBucket(cmd.Context(), models.BucketArgs{BucketName: args[0]})
		return err
	}),
}

var listObjectsCmd = &cobra.Command{
	Use:   "ls BUCKET [PREFIX]",
	Short: "List objects in a bucket",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		a := models.ListObjectsArgs{BucketName: args[0]}
		if len(args) == 2 {
			a.Prefix = args[1]
		}
		a.Marker, _ = cmd.Flags().GetString("marker")

		reply, err := sess.ListObjects(cmd.Context(), a)
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

var removeObjectsCmd = &cobra.Command{
	Use:   "rm BUCKET OBJECT...",
	Short: "Remove objects",
	Args:  cobra.MinimumNArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		_, err := sess.RemoveObject(cmd.Context(), models.RemoveObjectArgs{
			BucketName: args[0],
			Objects:    args[1:],
		})
		return err
	}),
}

var presignCmd = &cobra.Command{
	Use:   "presign BUCKET OBJECT",
	Short: "Create a presigned download URL",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		expiry, _ := cmd.Flags().GetDuration("expiry")
		reply, err := sess.PresignedGet(cmd.Context(), models.PresignedGetArgs{
			HostName:   sess.Endpoint().HostPort(),
			BucketName: args[0],
			ObjectName: args[1],
			Expiry:     int64(expiry.Seconds()),
		})
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

var putURLCmd = &cobra.Command{
	Use:   "put-url BUCKET OBJECT",
	Short: "Create a presigned upload URL",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		ep := sess.Endpoint()
		reply, err := sess.PutObjectURL(cmd.Context(), models.PutObjectURLArgs{
			TargetHost:  ep.HostPort(),
			TargetProto: ep.Scheme + ":",
			BucketName:  args[0],
			ObjectName:  args[1],
		})
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage bucket policies",
}

var policyGetCmd = &cobra.Command{
	Use:   "get BUCKET [PREFIX]",
	Short: "Show the policy of a bucket prefix",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		a := models.GetBucketPolicyArgs{BucketName: args[0]}
		if len(args) == 2 {
			a.Prefix = args[1]
		}
		reply, err := sess.GetBucketPolicy(cmd.Context(), a)
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

var policySetCmd = &cobra.Command{
	Use:       "set BUCKET POLICY [PREFIX]",
	Short:     "Set the policy of a bucket prefix (none, readonly, writeonly, readwrite)",
	Args:      cobra.RangeArgs(2, 3),
	ValidArgs: []string{string(models.PolicyNone), string(models.PolicyReadOnly), string(models.PolicyWriteOnly), string(models.PolicyReadWrite)},
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		policy := models.BucketPolicy(args[1])
		if !policy.Valid() {
			return fmt.Errorf("unknown policy %q", args[1])
		}
		a := models.SetBucketPolicyArgs{BucketName: args[0], Policy: policy}
		if len(args) == 3 {
			a.Prefix = args[2]
		}
		_, err := sess.SetBucketPolicy(cmd.Context(), a)
		return err
	}),
}

var policyListCmd = &cobra.Command{
	Use:   "list BUCKET",
	Short: "List all prefix policies of a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		reply, err := sess.ListAllBucketPolicies(cmd.Context(), models.ListAllBucketPoliciesArgs{BucketName: args[0]})
		if err != nil {
			return err
		}
		return printResult(cmd, reply.Policies)
	}),
}

func init() {
	rootCmd.AddCommand(serverInfoCmd, storageInfoCmd, bucketsCmd, makeBucketCmd, removeBucketCmd,
		listObjectsCmd, removeObjectsCmd, presignCmd, putURLCmd, policyCmd)
	policyCmd.AddCommand(policyGetCmd, policySetCmd, policyListCmd)

	listObjectsCmd.Flags().String("marker", "", "Continue listing after this object")
	presignCmd.Flags().Duration("expiry", 0, "URL lifetime (server default when zero)")
}

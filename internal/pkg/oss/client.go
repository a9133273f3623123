package oss

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/ecogrid_server/config"
)

type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// UploadQRCode 归档生成的支付二维码
func (c *Client) UploadQRCode(name string, data []byte) (string, error) {
	objectKey := QRObjectKey(name, time.Now())

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType("image/png"))
	if err != nil {
		return "", fmt.Errorf("failed to upload qr code: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// GetURL 获取文件访问 URL
func (c *Client) GetURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, strings.TrimPrefix(c.client.Config.Endpoint, "https://"), objectKey)
}

// QRObjectKey 二维码对象路径 qrcodes/<yyyymmdd>/<name>-<unix>.png
func QRObjectKey(name string, at time.Time) string {
	if name == "" {
		name = "custom"
	}
	return fmt.Sprintf("qrcodes/%s/%s-%d.png", at.Format("20060102"), name, at.Unix())
}

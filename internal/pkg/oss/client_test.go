package oss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQRObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "qrcodes/20260314/basic-1773482400.png", QRObjectKey("basic", at))
	assert.Equal(t, "qrcodes/20260314/custom-1773482400.png", QRObjectKey("", at))
}

func TestGetURL_CDN(t *testing.T) {
	c := &Client{cdnDomain: "cdn.ecogrid.example"}
	assert.Equal(t, "https://cdn.ecogrid.example/qrcodes/a.png", c.GetURL("qrcodes/a.png"))
}

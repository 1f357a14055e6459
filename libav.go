//go:build libav

// ABOUTME: Links the libavcodec backend when built with -tags libav
// ABOUTME: The backend registers itself ahead of the native one
package main

import _ "github.com/Sendspin/imaqt-go/pkg/codec/libav"

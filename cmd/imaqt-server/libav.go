//go:build libav

// ABOUTME: Links the libavcodec backend when built with -tags libav
// ABOUTME: Sessions then default to libav unless a client asks otherwise
package main

import _ "github.com/Sendspin/imaqt-go/pkg/codec/libav"

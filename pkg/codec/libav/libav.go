//go:build libav

// ABOUTME: libavcodec-backed IMA-QT decoder and encoder contexts
// ABOUTME: Built only with the libav tag; registers as the "libav" backend
package libav

/*
#cgo pkg-config: libavcodec libavutil

#include <string.h>
#include <libavcodec/avcodec.h>
#include <libavutil/channel_layout.h>
#include <libavutil/error.h>
#include <libavutil/frame.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/Sendspin/imaqt-go/pkg/codec"
)

// Backend is the registry name of this implementation
const Backend = "libav"

func init() {
	codec.Register(&codec.Codec{
		ID:         codec.IDAdpcmImaQt,
		Name:       codec.IDAdpcmImaQt.String(),
		Backend:    Backend,
		Priority:   10,
		NewDecoder: NewDecoder,
		NewEncoder: NewEncoder,
	})
}

func avErr2Str(code C.int) string {
	var buffer [C.AV_ERROR_MAX_STRING_SIZE]C.char
	if C.av_strerror(code, &buffer[0], C.AV_ERROR_MAX_STRING_SIZE) < 0 {
		return "Unknown error"
	}
	return C.GoString(&buffer[0])
}

// avError converts a negative libav return value into a codec error.
// The numeric codes are shared, so errors.Is against codec sentinels works.
func avError(ret C.int, op string) error {
	return codec.NewError(int(ret), fmt.Sprintf("libav: %s: %s", op, avErr2Str(ret)))
}

func openContext(c *C.AVCodec, p codec.Parameters, encoder bool) (*C.AVCodecContext, error) {
	ctx := C.avcodec_alloc_context3(c)
	if ctx == nil {
		return nil, codec.ErrNoMemory
	}

	ctx.sample_rate = C.int(p.SampleRate)
	C.av_channel_layout_default(&ctx.ch_layout, C.int(p.Channels))
	if encoder {
		ctx.sample_fmt = C.AV_SAMPLE_FMT_S16P
		ctx.bit_rate = C.int64_t(p.BitRate)
	}

	if ret := C.avcodec_open2(ctx, c, nil); ret < 0 {
		C.avcodec_free_context(&ctx)
		return nil, avError(ret, "avcodec_open2")
	}
	return ctx, nil
}

type decoder struct {
	ctx    *C.AVCodecContext
	frame  *C.AVFrame
	pkt    *C.AVPacket
	params codec.Parameters
}

// NewDecoder opens a libavcodec decoder context
func NewDecoder(p codec.Parameters) (codec.DecoderContext, error) {
	c := C.avcodec_find_decoder(C.AV_CODEC_ID_ADPCM_IMA_QT)
	if c == nil {
		return nil, codec.NewError(codec.CodeDecoderNotFound, "libav: adpcm_ima_qt decoder not found")
	}

	ctx, err := openContext(c, p, false)
	if err != nil {
		return nil, err
	}

	d := &decoder{ctx: ctx, params: p}
	d.frame = C.av_frame_alloc()
	d.pkt = C.av_packet_alloc()
	if d.frame == nil || d.pkt == nil {
		d.Close()
		return nil, codec.ErrNoMemory
	}
	d.params.SampleFormat = codec.SampleFmtS16P
	return d, nil
}

func (d *decoder) SendPacket(pkt *codec.Packet) error {
	if d.ctx == nil {
		return codec.ErrInvalidArgument
	}
	if pkt == nil || len(pkt.Data) == 0 {
		if ret := C.avcodec_send_packet(d.ctx, nil); ret < 0 {
			return avError(ret, "avcodec_send_packet")
		}
		return nil
	}

	if ret := C.av_new_packet(d.pkt, C.int(len(pkt.Data))); ret < 0 {
		return avError(ret, "av_new_packet")
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(d.pkt.data)), len(pkt.Data)), pkt.Data)

	ret := C.avcodec_send_packet(d.ctx, d.pkt)
	C.av_packet_unref(d.pkt)
	if ret < 0 {
		return avError(ret, "avcodec_send_packet")
	}
	return nil
}

func (d *decoder) ReceiveFrame(frame *codec.Frame) error {
	if d.ctx == nil {
		return codec.ErrInvalidArgument
	}
	if ret := C.avcodec_receive_frame(d.ctx, d.frame); ret < 0 {
		return avError(ret, "avcodec_receive_frame")
	}
	defer C.av_frame_unref(d.frame)

	samples := int(d.frame.nb_samples)
	channels := int(d.frame.ch_layout.nb_channels)
	planes := unsafe.Slice(d.frame.extended_data, channels)

	switch C.enum_AVSampleFormat(d.frame.format) {
	case C.AV_SAMPLE_FMT_S16P:
		frame.Alloc(samples, channels, codec.SampleFmtS16P)
		for ch := 0; ch < channels; ch++ {
			copy(frame.Data[ch], unsafe.Slice((*byte)(unsafe.Pointer(planes[ch])), samples*2))
		}
	case C.AV_SAMPLE_FMT_S16:
		frame.Alloc(samples, channels, codec.SampleFmtS16)
		copy(frame.Data[0], unsafe.Slice((*byte)(unsafe.Pointer(planes[0])), samples*channels*2))
	default:
		return codec.Errorf(codec.CodeInvalidData, "libav: unexpected sample format %d", int(d.frame.format))
	}
	return nil
}

func (d *decoder) Parameters() codec.Parameters {
	return d.params
}

func (d *decoder) Close() error {
	if d.frame != nil {
		C.av_frame_free(&d.frame)
	}
	if d.pkt != nil {
		C.av_packet_free(&d.pkt)
	}
	if d.ctx != nil {
		C.avcodec_free_context(&d.ctx)
	}
	return nil
}

type encoder struct {
	codec  *C.AVCodec
	ctx    *C.AVCodecContext
	frame  *C.AVFrame
	pkt    *C.AVPacket
	params codec.Parameters
}

// NewEncoder opens a libavcodec encoder context
func NewEncoder(p codec.Parameters) (codec.EncoderContext, error) {
	c := C.avcodec_find_encoder(C.AV_CODEC_ID_ADPCM_IMA_QT)
	if c == nil {
		return nil, codec.NewError(codec.CodeEncoderNotFound, "libav: adpcm_ima_qt encoder not found")
	}

	e := &encoder{codec: c, params: p}
	if err := e.open(); err != nil {
		return nil, err
	}
	e.pkt = C.av_packet_alloc()
	if e.pkt == nil {
		e.Close()
		return nil, codec.ErrNoMemory
	}
	return e, nil
}

// open (re)creates the codec context and its reusable frame
func (e *encoder) open() error {
	ctx, err := openContext(e.codec, e.params, true)
	if err != nil {
		return err
	}

	frame := C.av_frame_alloc()
	if frame == nil {
		C.avcodec_free_context(&ctx)
		return codec.ErrNoMemory
	}
	frame.nb_samples = ctx.frame_size
	frame.format = C.int(ctx.sample_fmt)
	frame.sample_rate = ctx.sample_rate
	if ret := C.av_channel_layout_copy(&frame.ch_layout, &ctx.ch_layout); ret < 0 {
		C.av_frame_free(&frame)
		C.avcodec_free_context(&ctx)
		return avError(ret, "av_channel_layout_copy")
	}
	if ret := C.av_frame_get_buffer(frame, 0); ret < 0 {
		C.av_frame_free(&frame)
		C.avcodec_free_context(&ctx)
		return avError(ret, "av_frame_get_buffer")
	}

	e.ctx = ctx
	e.frame = frame
	e.params.SampleFormat = codec.SampleFmtS16P
	e.params.BitRate = int64(ctx.bit_rate)
	return nil
}

func (e *encoder) FrameSize() int {
	if e.ctx == nil {
		return 0
	}
	return int(e.ctx.frame_size)
}

func (e *encoder) BlockAlign() int {
	if e.ctx == nil {
		return 0
	}
	return int(e.ctx.block_align)
}

func (e *encoder) SendFrame(frame *codec.Frame) error {
	if e.ctx == nil {
		return codec.ErrInvalidArgument
	}
	if frame == nil {
		if ret := C.avcodec_send_frame(e.ctx, nil); ret < 0 {
			return avError(ret, "avcodec_send_frame")
		}
		return nil
	}

	samples := int(e.ctx.frame_size)
	channels := e.params.Channels
	if frame.Format != codec.SampleFmtS16P || frame.NbSamples != samples || len(frame.Data) < channels {
		return codec.Errorf(codec.CodeInvalidArgument,
			"libav: frame must be s16p with %d samples and %d channels", samples, channels)
	}

	if ret := C.av_frame_make_writable(e.frame); ret < 0 {
		return avError(ret, "av_frame_make_writable")
	}
	planes := unsafe.Slice(e.frame.extended_data, channels)
	for ch := 0; ch < channels; ch++ {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(planes[ch])), samples*2), frame.Data[ch])
	}

	if ret := C.avcodec_send_frame(e.ctx, e.frame); ret < 0 {
		return avError(ret, "avcodec_send_frame")
	}
	return nil
}

func (e *encoder) ReceivePacket(pkt *codec.Packet) error {
	if e.ctx == nil {
		return codec.ErrInvalidArgument
	}
	if ret := C.avcodec_receive_packet(e.ctx, e.pkt); ret < 0 {
		return avError(ret, "avcodec_receive_packet")
	}
	defer C.av_packet_unref(e.pkt)

	pkt.Data = C.GoBytes(unsafe.Pointer(e.pkt.data), e.pkt.size)
	pkt.Duration = int(e.pkt.duration)
	return nil
}

// Reset reopens the context; the ADPCM encoders do not support
// avcodec_flush_buffers once drained.
func (e *encoder) Reset() error {
	if e.ctx == nil {
		return codec.ErrInvalidArgument
	}
	C.av_frame_free(&e.frame)
	C.avcodec_free_context(&e.ctx)
	return e.open()
}

func (e *encoder) Parameters() codec.Parameters {
	return e.params
}

func (e *encoder) Close() error {
	if e.frame != nil {
		C.av_frame_free(&e.frame)
	}
	if e.pkt != nil {
		C.av_packet_free(&e.pkt)
	}
	if e.ctx != nil {
		C.avcodec_free_context(&e.ctx)
	}
	return nil
}

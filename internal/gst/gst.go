//go:build cgo

// Package gst binds the GStreamer playback graph used by the player.
package gst

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-video-1.0 gstreamer-pbutils-1.0

#include <stdlib.h>
#include <string.h>
#include <gst/gst.h>
#include <gst/video/videooverlay.h>

enum {
	VT_OK = 0,
	VT_ERR_ELEMENT = 1,
	VT_ERR_LINK = 2,
};

enum {
	VT_MSG_NONE = 0,
	VT_MSG_EOS,
	VT_MSG_ERROR,
	VT_MSG_WARNING,
	VT_MSG_STATE_CHANGED,
	VT_MSG_DURATION_CHANGED,
};

typedef struct {
	GstElement *pipeline;
	GstElement *source;
	GstElement *decoder;
	GstElement *queue;
	GstElement *convert;
	GstElement *sink;
	GstBus *bus;
	gulong pad_added_id;
} vt_graph;

typedef struct {
	int kind;
	int old_state;
	int new_state;
	char *text;
	char *debug;
} vt_message;

static void vt_init(void) {
	gst_init(NULL, NULL);
}

// Links the decoder's dynamic video pad to the queue. Pads of other media
// types stay unlinked.
static void vt_on_pad_added(GstElement *element, GstPad *pad, gpointer data) {
	GstElement *queue = GST_ELEMENT(data);
	GstPad *sinkpad = gst_element_get_static_pad(queue, "sink");
	if (sinkpad == NULL) {
		return;
	}
	if (!gst_pad_is_linked(sinkpad)) {
		GstCaps *caps = gst_pad_get_current_caps(pad);
		if (caps == NULL) {
			caps = gst_pad_query_caps(pad, NULL);
		}
		gboolean is_video = FALSE;
		if (caps != NULL && gst_caps_get_size(caps) > 0) {
			const gchar *name = gst_structure_get_name(gst_caps_get_structure(caps, 0));
			is_video = g_str_has_prefix(name, "video/");
		}
		if (caps != NULL) {
			gst_caps_unref(caps);
		}
		if (is_video) {
			gst_pad_link(pad, sinkpad);
		}
	}
	gst_object_unref(sinkpad);
}

static void vt_unref_loose(GstElement *e) {
	if (e != NULL) {
		gst_object_unref(e);
	}
}

static vt_graph *vt_graph_new(const char *location, const char *sink_factory, int *code) {
	vt_graph *g = g_new0(vt_graph, 1);

	g->pipeline = gst_pipeline_new("video-player");
	g->source = gst_element_factory_make("filesrc", "video-source");
	g->decoder = gst_element_factory_make("decodebin", "decoder-demuxer");
	g->queue = gst_element_factory_make("queue", "video-queue");
	g->convert = gst_element_factory_make("autovideoconvert", "video-format-conv");
	g->sink = gst_element_factory_make(sink_factory, "video-sink");

	if (!g->pipeline || !g->source || !g->decoder || !g->queue || !g->convert || !g->sink) {
		vt_unref_loose(g->source);
		vt_unref_loose(g->decoder);
		vt_unref_loose(g->queue);
		vt_unref_loose(g->convert);
		vt_unref_loose(g->sink);
		vt_unref_loose(g->pipeline);
		g_free(g);
		*code = VT_ERR_ELEMENT;
		return NULL;
	}

	g_object_set(G_OBJECT(g->source), "location", location, NULL);

	gst_bin_add_many(GST_BIN(g->pipeline), g->source, g->decoder, g->queue, g->convert, g->sink, NULL);
	if (!gst_element_link(g->source, g->decoder) ||
	    !gst_element_link_many(g->queue, g->convert, g->sink, NULL)) {
		gst_object_unref(g->pipeline);
		g_free(g);
		*code = VT_ERR_LINK;
		return NULL;
	}
	g->pad_added_id = g_signal_connect(g->decoder, "pad-added", G_CALLBACK(vt_on_pad_added), g->queue);

	g->bus = gst_pipeline_get_bus(GST_PIPELINE(g->pipeline));
	*code = VT_OK;
	return g;
}

static void vt_graph_free(vt_graph *g) {
	gst_element_set_state(g->pipeline, GST_STATE_NULL);
	if (g->pad_added_id != 0) {
		g_signal_handler_disconnect(g->decoder, g->pad_added_id);
	}
	gst_object_unref(g->bus);
	gst_object_unref(g->pipeline);
	g_free(g);
}

static gboolean vt_graph_set_window(vt_graph *g, guintptr handle) {
	if (!GST_IS_VIDEO_OVERLAY(g->sink)) {
		return FALSE;
	}
	gst_video_overlay_set_window_handle(GST_VIDEO_OVERLAY(g->sink), handle);
	return TRUE;
}

// Waits up to timeout for an asynchronous change to PAUSED or PLAYING, so
// that seeks issued right after it find a prerolled pipeline.
static int vt_graph_set_state(vt_graph *g, int state, guint64 timeout) {
	GstStateChangeReturn ret = gst_element_set_state(g->pipeline, (GstState)state);
	if (ret == GST_STATE_CHANGE_ASYNC && state >= GST_STATE_PAUSED) {
		ret = gst_element_get_state(g->pipeline, NULL, NULL, timeout);
	}
	return ret;
}

static gboolean vt_graph_query_duration(vt_graph *g, gint64 *out) {
	return gst_element_query_duration(g->pipeline, GST_FORMAT_TIME, out);
}

static gboolean vt_graph_query_position(vt_graph *g, gint64 *out) {
	return gst_element_query_position(g->pipeline, GST_FORMAT_TIME, out);
}

// Rate-change seek anchored at the current position, sent to the sink.
static gboolean vt_graph_seek_rate(vt_graph *g, gdouble rate) {
	gint64 position;
	if (!gst_element_query_position(g->pipeline, GST_FORMAT_TIME, &position)) {
		return FALSE;
	}

	GstSeekFlags flags = GST_SEEK_FLAG_FLUSH | GST_SEEK_FLAG_ACCURATE;
	GstEvent *event;
	if (rate > 0) {
		event = gst_event_new_seek(rate, GST_FORMAT_TIME, flags,
			GST_SEEK_TYPE_SET, position, GST_SEEK_TYPE_END, 0);
	} else {
		event = gst_event_new_seek(rate, GST_FORMAT_TIME, flags,
			GST_SEEK_TYPE_SET, 0, GST_SEEK_TYPE_SET, position);
	}
	return gst_element_send_event(g->sink, event);
}

static gboolean vt_graph_seek_to(vt_graph *g, gint64 position, gdouble rate) {
	GstSeekFlags flags = GST_SEEK_FLAG_FLUSH | GST_SEEK_FLAG_ACCURATE;
	if (rate > 0) {
		return gst_element_seek(g->pipeline, rate, GST_FORMAT_TIME, flags,
			GST_SEEK_TYPE_SET, position, GST_SEEK_TYPE_NONE, GST_CLOCK_TIME_NONE);
	}
	return gst_element_seek(g->pipeline, rate, GST_FORMAT_TIME, flags,
		GST_SEEK_TYPE_SET, 0, GST_SEEK_TYPE_SET, position);
}

static GstBus *vt_graph_ref_bus(vt_graph *g) {
	return GST_BUS(gst_object_ref(g->bus));
}

static void vt_bus_unref(GstBus *bus) {
	gst_object_unref(bus);
}

// pipeline is only compared against message sources, never dereferenced,
// so the graph may be freed while a pop is in flight.
static int vt_bus_pop(GstBus *bus, GstElement *pipeline, guint64 timeout, vt_message *out) {
	GstMessageType mask = GST_MESSAGE_EOS | GST_MESSAGE_ERROR | GST_MESSAGE_WARNING |
		GST_MESSAGE_STATE_CHANGED | GST_MESSAGE_DURATION_CHANGED;
	GstMessage *msg = gst_bus_timed_pop_filtered(bus, timeout, mask);
	if (msg == NULL) {
		return 0;
	}

	memset(out, 0, sizeof(*out));
	switch (GST_MESSAGE_TYPE(msg)) {
	case GST_MESSAGE_EOS:
		out->kind = VT_MSG_EOS;
		break;
	case GST_MESSAGE_ERROR: {
		GError *err = NULL;
		gchar *dbg = NULL;
		gst_message_parse_error(msg, &err, &dbg);
		out->kind = VT_MSG_ERROR;
		out->text = g_strdup(err != NULL ? err->message : "unknown error");
		out->debug = dbg;
		g_clear_error(&err);
		break;
	}
	case GST_MESSAGE_WARNING: {
		GError *err = NULL;
		gchar *dbg = NULL;
		gst_message_parse_warning(msg, &err, &dbg);
		out->kind = VT_MSG_WARNING;
		out->text = g_strdup(err != NULL ? err->message : "unknown warning");
		out->debug = dbg;
		g_clear_error(&err);
		break;
	}
	case GST_MESSAGE_STATE_CHANGED:
		// Only the pipeline's own transitions matter.
		if (GST_MESSAGE_SRC(msg) == GST_OBJECT_CAST(pipeline)) {
			GstState old_state, new_state, pending;
			gst_message_parse_state_changed(msg, &old_state, &new_state, &pending);
			out->kind = VT_MSG_STATE_CHANGED;
			out->old_state = old_state;
			out->new_state = new_state;
		}
		break;
	case GST_MESSAGE_DURATION_CHANGED:
		out->kind = VT_MSG_DURATION_CHANGED;
		break;
	default:
		break;
	}
	gst_message_unref(msg);
	return 1;
}

static void vt_message_clear(vt_message *m) {
	g_free(m->text);
	g_free(m->debug);
	m->text = NULL;
	m->debug = NULL;
}
*/
import "C"

import (
	"sync"
	"time"
	"unsafe"

	"emperror.dev/errors"

	"github.com/dewi-tim/vidtui/internal/player"
)

var initOnce sync.Once

// Init initializes GStreamer once per process.
func Init() {
	initOnce.Do(func() {
		C.vt_init()
	})
}

// codeToError converts a graph construction code to a Go error.
func codeToError(code C.int, sink string) error {
	switch code {
	case C.VT_OK:
		return nil
	case C.VT_ERR_ELEMENT:
		return errors.Wrapf(ErrElement, "filesrc, decodebin, queue, autovideoconvert or %s", sink)
	case C.VT_ERR_LINK:
		return ErrLink
	default:
		return errors.New("gst: unknown error")
	}
}

// Graph is the fixed filesrc ! decodebin ~> queue ! autovideoconvert ! sink
// pipeline.
type Graph struct {
	handle *C.vt_graph
	mu     sync.Mutex
}

// NewGraph builds the pipeline for a local file. sink names the video sink
// factory; it must implement the video overlay interface for the window
// handle to take effect.
func NewGraph(location, sink string) (*Graph, error) {
	Init()

	if sink == "" {
		sink = DefaultSink
	}

	clocation := C.CString(location)
	defer C.free(unsafe.Pointer(clocation))
	csink := C.CString(sink)
	defer C.free(unsafe.Pointer(csink))

	var code C.int
	handle := C.vt_graph_new(clocation, csink, &code)
	if handle == nil {
		return nil, codeToError(code, sink)
	}
	return &Graph{handle: handle}, nil
}

// SetWindowHandle implements player.Graph.
func (g *Graph) SetWindowHandle(handle uintptr) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle == nil {
		return player.ErrClosed
	}
	if C.vt_graph_set_window(g.handle, C.guintptr(handle)) == 0 {
		return ErrNoOverlay
	}
	return nil
}

// SetState implements player.Graph.
func (g *Graph) SetState(state player.GraphState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle == nil {
		return player.ErrClosed
	}
	ret := C.vt_graph_set_state(g.handle, C.int(toGstState(state)), C.guint64(StateChangeTimeout))
	if ret == C.GST_STATE_CHANGE_FAILURE {
		return errors.Wrapf(ErrStateChange, "to %s", state)
	}
	return nil
}

// QueryDuration implements player.Graph.
func (g *Graph) QueryDuration() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle == nil {
		return 0, false
	}
	var out C.gint64
	if C.vt_graph_query_duration(g.handle, &out) == 0 || out < 0 {
		return 0, false
	}
	return time.Duration(out), true
}

// QueryPosition implements player.Graph.
func (g *Graph) QueryPosition() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle == nil {
		return 0, false
	}
	var out C.gint64
	if C.vt_graph_query_position(g.handle, &out) == 0 || out < 0 {
		return 0, false
	}
	return time.Duration(out), true
}

// SeekRate implements player.Graph.
func (g *Graph) SeekRate(rate float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle == nil {
		return player.ErrClosed
	}
	if C.vt_graph_seek_rate(g.handle, C.gdouble(rate)) == 0 {
		return errors.Wrapf(ErrSeek, "rate %.2f", rate)
	}
	return nil
}

// SeekTo implements player.Graph.
func (g *Graph) SeekTo(pos time.Duration, rate float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle == nil {
		return player.ErrClosed
	}
	if C.vt_graph_seek_to(g.handle, C.gint64(pos), C.gdouble(rate)) == 0 {
		return errors.Wrapf(ErrSeek, "position %s", pos)
	}
	return nil
}

// PopMessage implements player.Graph. The bus is popped without holding the
// graph lock so state changes are not blocked by a waiting poll; the bus
// reference itself stays valid until Close.
func (g *Graph) PopMessage(timeout time.Duration) (player.Message, bool) {
	// The bus reference outlives a concurrent Close.
	g.mu.Lock()
	if g.handle == nil {
		g.mu.Unlock()
		time.Sleep(timeout)
		return player.Message{}, false
	}
	bus := C.vt_graph_ref_bus(g.handle)
	pipeline := g.handle.pipeline
	g.mu.Unlock()
	defer C.vt_bus_unref(bus)

	var cmsg C.vt_message
	if C.vt_bus_pop(bus, pipeline, C.guint64(timeout), &cmsg) == 0 {
		return player.Message{}, false
	}
	defer C.vt_message_clear(&cmsg)

	msg := player.Message{
		Kind:     toMessageKind(cmsg.kind),
		OldState: fromGstState(C.GstState(cmsg.old_state)),
		NewState: fromGstState(C.GstState(cmsg.new_state)),
	}
	if cmsg.text != nil {
		msg.Text = C.GoString(cmsg.text)
	}
	if cmsg.debug != nil {
		msg.Debug = C.GoString(cmsg.debug)
	}
	return msg, msg.Kind != player.MessageNone
}

// Close brings the pipeline to NULL and releases it.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle != nil {
		C.vt_graph_free(g.handle)
		g.handle = nil
	}
	return nil
}

func toGstState(s player.GraphState) C.GstState {
	switch s {
	case player.GraphReady:
		return C.GST_STATE_READY
	case player.GraphPaused:
		return C.GST_STATE_PAUSED
	case player.GraphPlaying:
		return C.GST_STATE_PLAYING
	default:
		return C.GST_STATE_NULL
	}
}

func fromGstState(s C.GstState) player.GraphState {
	switch s {
	case C.GST_STATE_READY:
		return player.GraphReady
	case C.GST_STATE_PAUSED:
		return player.GraphPaused
	case C.GST_STATE_PLAYING:
		return player.GraphPlaying
	default:
		return player.GraphNull
	}
}

func toMessageKind(kind C.int) player.MessageKind {
	switch kind {
	case C.VT_MSG_EOS:
		return player.MessageEOS
	case C.VT_MSG_ERROR:
		return player.MessageError
	case C.VT_MSG_WARNING:
		return player.MessageWarning
	case C.VT_MSG_STATE_CHANGED:
		return player.MessageStateChanged
	case C.VT_MSG_DURATION_CHANGED:
		return player.MessageDurationChanged
	default:
		return player.MessageNone
	}
}

var _ player.Graph = (*Graph)(nil)

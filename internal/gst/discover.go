//go:build cgo

package gst

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-pbutils-1.0

#include <stdlib.h>
#include <gst/gst.h>
#include <gst/pbutils/pbutils.h>

typedef struct {
	gint64 duration;
	int has_video;
	int width;
	int height;
	char *codec;
	char *container;
	char *title;
	char *error;
} vt_probe;

static char *vt_caps_description(GstCaps *caps) {
	if (caps == NULL) {
		return NULL;
	}
	char *desc = gst_pb_utils_get_codec_description(caps);
	gst_caps_unref(caps);
	return desc;
}

static int vt_discover(const char *path, guint64 timeout, vt_probe *out) {
	GError *err = NULL;

	gchar *uri = gst_filename_to_uri(path, &err);
	if (uri == NULL) {
		out->error = g_strdup(err != NULL ? err->message : "invalid path");
		g_clear_error(&err);
		return 0;
	}

	GstDiscoverer *disc = gst_discoverer_new(timeout, &err);
	if (disc == NULL) {
		out->error = g_strdup(err != NULL ? err->message : "no discoverer");
		g_clear_error(&err);
		g_free(uri);
		return 0;
	}

	GstDiscovererInfo *info = gst_discoverer_discover_uri(disc, uri, &err);
	g_free(uri);
	if (info == NULL || gst_discoverer_info_get_result(info) != GST_DISCOVERER_OK) {
		out->error = g_strdup(err != NULL ? err->message : "discovery failed");
		g_clear_error(&err);
		if (info != NULL) {
			gst_discoverer_info_unref(info);
		}
		g_object_unref(disc);
		return 0;
	}
	g_clear_error(&err);

	GstClockTime d = gst_discoverer_info_get_duration(info);
	out->duration = GST_CLOCK_TIME_IS_VALID(d) ? (gint64)d : -1;

	GList *videos = gst_discoverer_info_get_video_streams(info);
	if (videos != NULL) {
		GstDiscovererVideoInfo *v = (GstDiscovererVideoInfo *)videos->data;
		out->has_video = 1;
		out->width = gst_discoverer_video_info_get_width(v);
		out->height = gst_discoverer_video_info_get_height(v);
		out->codec = vt_caps_description(gst_discoverer_stream_info_get_caps(GST_DISCOVERER_STREAM_INFO(v)));
		gst_discoverer_stream_info_list_free(videos);
	}

	GstDiscovererStreamInfo *top = gst_discoverer_info_get_stream_info(info);
	if (top != NULL) {
		if (GST_IS_DISCOVERER_CONTAINER_INFO(top)) {
			out->container = vt_caps_description(gst_discoverer_stream_info_get_caps(top));
		}
		gst_discoverer_stream_info_unref(top);
	}

	const GstTagList *tags = gst_discoverer_info_get_tags(info);
	if (tags != NULL) {
		gchar *title = NULL;
		if (gst_tag_list_get_string(tags, GST_TAG_TITLE, &title)) {
			out->title = title;
		}
	}

	gst_discoverer_info_unref(info);
	g_object_unref(disc);
	return 1;
}

static void vt_probe_clear(vt_probe *p) {
	g_free(p->codec);
	g_free(p->container);
	g_free(p->title);
	g_free(p->error);
}
*/
import "C"

import (
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"emperror.dev/errors"

	"github.com/dewi-tim/vidtui/internal/player"
)

// Discoverer reads stream metadata without building a playback graph.
type Discoverer struct {
	Timeout time.Duration
}

// NewDiscoverer returns a discoverer bounded by timeout per file.
func NewDiscoverer(timeout time.Duration) *Discoverer {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Discoverer{Timeout: timeout}
}

// Probe returns the metadata of a local media file.
func (d *Discoverer) Probe(path string) (*player.Media, error) {
	Init()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve path")
	}

	cpath := C.CString(abs)
	defer C.free(unsafe.Pointer(cpath))

	var out C.vt_probe
	defer C.vt_probe_clear(&out)

	if C.vt_discover(cpath, C.guint64(d.Timeout), &out) == 0 {
		msg := "unknown"
		if out.error != nil {
			msg = C.GoString(out.error)
		}
		return nil, errors.Wrapf(ErrProbe, "%s: %s", path, msg)
	}

	m := &player.Media{
		Path:     path,
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		HasVideo: out.has_video != 0,
		Width:    int(out.width),
		Height:   int(out.height),
	}
	if out.duration >= 0 {
		m.Duration = time.Duration(out.duration)
	}
	if out.codec != nil {
		m.Codec = C.GoString(out.codec)
	}
	if out.container != nil {
		m.Container = C.GoString(out.container)
	}
	if out.title != nil {
		if t := strings.TrimSpace(C.GoString(out.title)); t != "" {
			m.Title = t
		}
	}
	return m, nil
}

package domain

import (
	"github.com/yourusername/link-resolve-go/internal/download"
)

// Author represents the author of a parsed post
type Author struct {
	Name        string         `json:"name"`
	Avatar      *download.Task `json:"-"`
	Description string         `json:"description,omitempty"`
}

// MediaKind discriminates the content variants
type MediaKind string

const (
	KindVideo    MediaKind = "video"
	KindImage    MediaKind = "image"
	KindGraphics MediaKind = "graphics"
	KindDynamic  MediaKind = "dynamic"
	KindSticker  MediaKind = "sticker"
	KindAudio    MediaKind = "audio"
)

// StickerSize classifies sticker rendering size
type StickerSize string

const (
	StickerSmall  StickerSize = "small"
	StickerMedium StickerSize = "medium"
	StickerLarge  StickerSize = "large"
)

// MediaContent is one unit of media within a parsed result. A content
// item holds a download task handle; the item is materialized by
// waiting on the task, and a failed task degrades only this item.
type MediaContent interface {
	Kind() MediaKind
	// Task returns the primary download task of the item, nil when the
	// item carries no fetchable media.
	Task() *download.Task
}

// VideoContent is a single video, optionally with a cover image
type VideoContent struct {
	File     *download.Task
	Cover    *download.Task
	Duration float64 // seconds
}

func (c *VideoContent) Kind() MediaKind      { return KindVideo }
func (c *VideoContent) Task() *download.Task { return c.File }

// ImageContent is a single image of an image set
type ImageContent struct {
	File *download.Task
}

func (c *ImageContent) Kind() MediaKind      { return KindImage }
func (c *ImageContent) Task() *download.Task { return c.File }

// GraphicsContent pairs an image with a caption. The image is
// required, the caption may be empty.
type GraphicsContent struct {
	Text  string
	Image *download.Task
}

func (c *GraphicsContent) Kind() MediaKind      { return KindGraphics }
func (c *GraphicsContent) Task() *download.Task { return c.Image }

// DynamicContent is a short animated clip delivered as video and
// intended to be transcoded to an animation by the renderer
type DynamicContent struct {
	File *download.Task
}

func (c *DynamicContent) Kind() MediaKind      { return KindDynamic }
func (c *DynamicContent) Task() *download.Task { return c.File }

// StickerContent is a sticker image with a display size hint
type StickerContent struct {
	File *download.Task
	Size StickerSize
	Alt  string
}

func (c *StickerContent) Kind() MediaKind      { return KindSticker }
func (c *StickerContent) Task() *download.Task { return c.File }

// AudioContent is a single audio track, optionally with cover art
type AudioContent struct {
	File     *download.Task
	Cover    *download.Task
	Duration float64 // seconds
}

func (c *AudioContent) Kind() MediaKind      { return KindAudio }
func (c *AudioContent) Task() *download.Task { return c.File }

package model

import "strings"

// Track 手语轨道，false = LESCO, true = LIBRAS，与课程 language 字段一致
type Track bool

const (
	TrackLesco  Track = false
	TrackLibras Track = true
)

func (t Track) Label() string {
	if t == TrackLibras {
		return "LIBRAS"
	}
	return "LESCO"
}

// ParseTrack 解析 lesco / libras（大小写不敏感）
func ParseTrack(s string) (Track, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lesco":
		return TrackLesco, true
	case "libras":
		return TrackLibras, true
	}
	return TrackLesco, false
}

package middleware

import (
	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const TrackHeader = "X-Track"

// TrackMiddleware 按 X-Track 头或 ?track= 选择轨道，缺省使用配置的默认轨道
func TrackMiddleware(defaultTrack func() model.Track) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TrackHeader)
		if raw == "" {
			raw = c.Query("track")
		}

		track := defaultTrack()
		if raw != "" {
			parsed, ok := model.ParseTrack(raw)
			if !ok {
				util.BadRequest(c, "invalid track: must be lesco or libras")
				c.Abort()
				return
			}
			track = parsed
		}

		c.Set(util.ContextTrackKey, track)
		c.Next()
	}
}

// TrackFrom 读取请求上的轨道，未经过中间件时为 LESCO
func TrackFrom(c *gin.Context) model.Track {
	if v, ok := c.Get(util.ContextTrackKey); ok {
		if track, ok := v.(model.Track); ok {
			return track
		}
	}
	return model.TrackLesco
}

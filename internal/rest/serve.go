// Copyright (C) 2021 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mlnoga/retouch/internal/ops"
	"github.com/mlnoga/retouch/internal/ops/adjust"
	"github.com/mlnoga/retouch/internal/params"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/mlnoga/retouch/internal/stats"
	"github.com/pkg/errors"
)

// Response header listing the codes of extreme combination warnings, comma separated
const WarningsHeader = "X-Retouch-Warnings"

// Server configuration
type Config struct {
	Addr        string // Listen address
	MaxUploadMB int    // Maximum request body size in MiB
	MaxRenders  int    // Maximum number of concurrent renders, 0 to derive from the context
}

// Loads the configuration from the environment, after reading an optional .env file
// from the working directory
func ConfigFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return Config{}, errors.Wrap(err, "loading .env")
	}
	cfg := Config{Addr: ":8080", MaxUploadMB: 64}
	if v := os.Getenv("RETOUCH_ADDR"); v != "" {
		cfg.Addr = v
	}
	for _, e := range []struct {
		name string
		dst  *int
	}{{"RETOUCH_MAX_UPLOAD_MB", &cfg.MaxUploadMB}, {"RETOUCH_MAX_RENDERS", &cfg.MaxRenders}} {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, errors.Errorf("invalid value %q for %s", v, e.name)
		}
		*e.dst = n
	}
	return cfg, nil
}

// HTTP API for rendering images and inspecting parameters
type Server struct {
	cfg     Config
	ctx     *ops.Context
	renders chan struct{}
}

func NewServer(cfg Config, c *ops.Context) *Server {
	maxRenders := cfg.MaxRenders
	if maxRenders <= 0 {
		// assume 24 megapixel images for the memory budget
		maxRenders = c.MaxConcurrentRenders(24 * 1024 * 1024)
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	return &Server{cfg: cfg, ctx: c, renders: make(chan struct{}, maxRenders)}
}

// Maximum number of renders running at the same time
func (s *Server) MaxRenders() int { return cap(s.renders) }

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.ctx.Log), gin.Recovery())
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/render", s.postRender)
			v1.POST("/params", postParams)
			v1.POST("/histogram", s.postHistogram)
		}
	}
	return r
}

// Listens and serves on the configured address
func (s *Server) Run() error {
	fmt.Fprintf(s.ctx.Log, "Listening on %s with up to %d concurrent renders\n", s.cfg.Addr, s.MaxRenders())
	return s.Router().Run(s.cfg.Addr)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Decodes parameters from JSON, starting from the defaults. Unknown fields are rejected
func decodeParams(r io.Reader) (params.AdjustmentParameters, error) {
	p := params.Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return p, errors.Wrap(err, "parsing parameters")
	}
	return p, nil
}

// Reads the multipart image upload from form field "image"
func (s *Server) readImage(c *gin.Context) (*pixbuf.Buffer, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.cfg.MaxUploadMB)<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, errors.Wrap(err, "reading image upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := pixbuf.Decode(f)
	if err != nil {
		return nil, err
	}
	b.FileName = fh.Filename
	return b, nil
}

func (s *Server) postRender(c *gin.Context) {
	b, err := s.readImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	p, err := decodeParams(strings.NewReader(c.PostForm("params")))
	if err != nil {
		badRequest(c, err)
		return
	}
	format, err := pixbuf.FormatFromName(c.PostForm("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if v := c.PostForm("preview"); v != "" {
		maxEdge, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, errors.Errorf("invalid preview size %q", v))
			return
		}
		b = b.Preview(maxEdge)
	}

	select {
	case s.renders <- struct{}{}:
		defer func() { <-s.renders }()
	case <-c.Request.Context().Done():
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	res, err := adjust.Render(b, p, s.ctx)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	var out bytes.Buffer
	if err := res.Buffer.Encode(&out, format, s.ctx.JPEGQuality); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(res.Warnings) > 0 {
		codes := make([]string, len(res.Warnings))
		for i, w := range res.Warnings {
			codes[i] = w.Code
		}
		c.Header(WarningsHeader, strings.Join(codes, ","))
	}
	c.Data(http.StatusOK, format.ContentType(), out.Bytes())
}

type postParamsResponse struct {
	Params   params.AdjustmentParameters `json:"params"`
	Warnings []params.Warning            `json:"warnings"`
}

// Returns the parameters clamped into their ranges, with any warnings
func postParams(c *gin.Context) {
	p, err := decodeParams(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	clamped := p.Clamped()
	warnings := clamped.DetectExtremes()
	if warnings == nil {
		warnings = []params.Warning{}
	}
	c.JSON(http.StatusOK, postParamsResponse{Params: clamped, Warnings: warnings})
}

func (s *Server) postHistogram(c *gin.Context) {
	b, err := s.readImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	st, err := stats.Compute(b)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

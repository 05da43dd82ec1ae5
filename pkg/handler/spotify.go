package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"portfolio/pkg/core"
	"portfolio/pkg/oauth"
	"portfolio/pkg/proxy"
	"portfolio/pkg/ratelimit"
	"portfolio/pkg/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// Spotify serves the Spotify listening-trends dashboard API: the OAuth
// login flow plus aggregation endpoints over the Spotify Web API.
type Spotify struct {
	oauth *oauth.Client
	proxy *proxy.Proxy
}

// NewSpotify creates the handler from an OAuth client and an API proxy
// pointed at the Spotify Web API.
func NewSpotify(oauthClient *oauth.Client, apiProxy *proxy.Proxy) *Spotify {
	return &Spotify{
		oauth: oauthClient,
		proxy: apiProxy,
	}
}

// Register attaches the Spotify routes to the given group. Auth-flow routes
// get a tight rate limit; data endpoints require an authenticated session.
func (h *Spotify) Register(rg *gin.RouterGroup, limiter *ratelimit.Limiter) {
	rg.GET("/status", h.status)
	rg.GET("/auth", limiter.Middleware(10, time.Minute), h.auth)
	rg.GET("/callback", limiter.Middleware(10, time.Minute), h.callback)
	rg.GET("/logout", h.logout)

	api := rg.Group("/api", RequireAuth, limiter.Middleware(60, time.Minute))
	api.GET("/recent", h.apiRecent)
	api.GET("/top/:time_range", h.apiTop)
	api.GET("/genres", h.apiGenres)
	api.GET("/audio-features", h.apiAudioFeatures)
	api.GET("/taste-evolution", h.apiTasteEvolution)
}

// status reports whether the session is authenticated and the integration
// is configured, for the dashboard page to decide what to render.
func (h *Spotify) status(c *gin.Context) {
	sess := SessionFromContext(c)
	token, ok := session.AccessToken(sess)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": ok && token != "",
		"configured":    h.oauth.Credentials().Configured(),
	})
}

// auth starts the authorization-code flow: store a fresh CSRF state and a
// PKCE verifier in the session and redirect the browser to the provider.
func (h *Spotify) auth(c *gin.Context) {
	sess := SessionFromContext(c)
	verifier := oauth2.GenerateVerifier()
	state := session.BeginAuth(sess, verifier)
	authURL := h.oauth.AuthorizeURLWithPKCE(h.callbackURL(c), state, verifier)
	c.Redirect(http.StatusFound, authURL)
}

// callback completes the flow: validate the single-use state, exchange the
// code, and store the token pair in the session.
func (h *Spotify) callback(c *gin.Context) {
	logger := core.LoggerFromCtx(c.Request.Context())
	sess := SessionFromContext(c)

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("OAuth callback returned error", "error", errParam)
		sess.Delete(session.KeyOAuthState)
		sess.Delete(session.KeyPKCEVerifier)
		c.Redirect(http.StatusFound, "/projects/spotify/status")
		return
	}

	verifier, err := session.ConsumeState(sess, c.Query("state"))
	if err != nil {
		logger.Warn("OAuth state mismatch on callback")
		c.JSON(http.StatusForbidden, gin.H{"error": "OAuth state mismatch"})
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), c.Query("code"), h.callbackURL(c),
		oauth.ExchangeOpts{CodeVerifier: verifier})
	if err != nil {
		logger.Error("Token exchange failed", "error", err)
		c.Redirect(http.StatusFound, "/projects/spotify/status")
		return
	}

	session.StoreTokens(sess, token.AccessToken, token.RefreshToken)
	c.Redirect(http.StatusFound, "/projects/spotify/status")
}

// logout drops the session's token pair.
func (h *Spotify) logout(c *gin.Context) {
	session.ClearTokens(SessionFromContext(c))
	c.Redirect(http.StatusFound, "/projects/spotify/status")
}

// callbackURL rebuilds the externally visible callback URL for this request.
func (h *Spotify) callbackURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	base := strings.TrimSuffix(c.FullPath(), "/auth")
	base = strings.TrimSuffix(base, "/callback")
	return scheme + "://" + c.Request.Host + base + "/callback"
}

// apiRecent returns the last 50 played tracks.
func (h *Spotify) apiRecent(c *gin.Context) {
	data, status := h.proxy.Call(c.Request.Context(), SessionFromContext(c),
		"/me/player/recently-played", proxy.CallOpts{
			Params: url.Values{"limit": {"50"}},
		})
	if data == nil {
		c.JSON(status, gin.H{"error": "Failed to fetch data"})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// apiTop returns top tracks and artists for a time range.
func (h *Spotify) apiTop(c *gin.Context) {
	timeRange := c.Param("time_range")
	switch timeRange {
	case "short_term", "medium_term", "long_term":
	default:
		timeRange = "medium_term"
	}

	ctx := c.Request.Context()
	sess := SessionFromContext(c)

	tracks, _ := h.proxy.Call(ctx, sess, "/me/top/tracks", proxy.CallOpts{
		Params: url.Values{"limit": {"20"}, "time_range": {timeRange}},
	})
	artists, _ := h.proxy.Call(ctx, sess, "/me/top/artists", proxy.CallOpts{
		Params: url.Values{"limit": {"10"}, "time_range": {timeRange}},
	})

	c.JSON(http.StatusOK, gin.H{
		"tracks":  rawOrNull(tracks),
		"artists": rawOrNull(artists),
	})
}

type artistsPage struct {
	Items []struct {
		Name   string   `json:"name"`
		Genres []string `json:"genres"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"items"`
}

// apiGenres aggregates a genre breakdown from the top 50 artists.
func (h *Spotify) apiGenres(c *gin.Context) {
	data, _ := h.proxy.Call(c.Request.Context(), SessionFromContext(c),
		"/me/top/artists", proxy.CallOpts{
			Params: url.Values{"limit": {"50"}, "time_range": {"medium_term"}},
		})

	var page artistsPage
	if data == nil || json.Unmarshal(data, &page) != nil || len(page.Items) == 0 {
		c.JSON(http.StatusOK, gin.H{"genres": []gin.H{}})
		return
	}

	counts := map[string]int{}
	for _, artist := range page.Items {
		for _, genre := range artist.Genres {
			counts[genre]++
		}
	}

	type genreCount struct {
		name  string
		count int
	}
	sorted := make([]genreCount, 0, len(counts))
	for name, count := range counts {
		sorted = append(sorted, genreCount{name, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].name < sorted[j].name
	})
	if len(sorted) > 8 {
		sorted = sorted[:8]
	}

	total := 0
	for _, g := range sorted {
		total += g.count
	}

	genres := make([]gin.H, 0, len(sorted))
	for _, g := range sorted {
		percent := 0
		if total > 0 {
			percent = int(math.Round(float64(g.count) / float64(total) * 100))
		}
		genres = append(genres, gin.H{"name": g.name, "count": g.count, "percent": percent})
	}

	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

type tracksPage struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type audioFeaturesPage struct {
	AudioFeatures []map[string]float64 `json:"audio_features"`
}

var featureKeys = []string{"danceability", "energy", "acousticness", "valence", "instrumentalness", "liveness"}

// apiAudioFeatures averages audio features over the top 50 tracks.
func (h *Spotify) apiAudioFeatures(c *gin.Context) {
	ctx := c.Request.Context()
	sess := SessionFromContext(c)

	tracksRaw, _ := h.proxy.Call(ctx, sess, "/me/top/tracks", proxy.CallOpts{
		Params: url.Values{"limit": {"50"}, "time_range": {"medium_term"}},
	})

	var tracks tracksPage
	if tracksRaw == nil || json.Unmarshal(tracksRaw, &tracks) != nil || len(tracks.Items) == 0 {
		c.JSON(http.StatusOK, gin.H{"features": nil})
		return
	}

	ids := make([]string, 0, len(tracks.Items))
	for _, track := range tracks.Items {
		ids = append(ids, track.ID)
	}

	featuresRaw, _ := h.proxy.Call(ctx, sess, "/audio-features", proxy.CallOpts{
		Params: url.Values{"ids": {strings.Join(ids, ",")}},
	})

	var features audioFeaturesPage
	if featuresRaw == nil || json.Unmarshal(featuresRaw, &features) != nil {
		c.JSON(http.StatusOK, gin.H{"features": nil})
		return
	}

	totals := map[string]float64{}
	count := 0
	for _, f := range features.AudioFeatures {
		if f == nil {
			continue
		}
		count++
		for _, key := range featureKeys {
			totals[key] += f[key]
		}
	}
	if count == 0 {
		c.JSON(http.StatusOK, gin.H{"features": nil})
		return
	}

	averages := gin.H{}
	for _, key := range featureKeys {
		averages[key] = int(math.Round(totals[key] / float64(count) * 100))
	}
	c.JSON(http.StatusOK, gin.H{"features": averages})
}

// apiTasteEvolution compares top artists across the three Spotify time ranges.
func (h *Spotify) apiTasteEvolution(c *gin.Context) {
	ctx := c.Request.Context()
	sess := SessionFromContext(c)

	periods := []string{"short_term", "medium_term", "long_term"}
	labels := map[string]string{
		"short_term":  "4 Weeks",
		"medium_term": "6 Months",
		"long_term":   "All Time",
	}

	evolution := gin.H{}
	for _, period := range periods {
		raw, _ := h.proxy.Call(ctx, sess, "/me/top/artists", proxy.CallOpts{
			Params: url.Values{"limit": {"5"}, "time_range": {period}},
		})

		var page artistsPage
		if raw == nil || json.Unmarshal(raw, &page) != nil {
			evolution[period] = gin.H{"label": labels[period], "artists": []gin.H{}}
			continue
		}

		artists := make([]gin.H, 0, len(page.Items))
		for _, artist := range page.Items {
			var image any
			if len(artist.Images) > 0 {
				// The last image is the smallest rendition
				image = artist.Images[len(artist.Images)-1].URL
			}
			genres := artist.Genres
			if len(genres) > 2 {
				genres = genres[:2]
			}
			artists = append(artists, gin.H{
				"name":   artist.Name,
				"image":  image,
				"genres": genres,
			})
		}
		evolution[period] = gin.H{"label": labels[period], "artists": artists}
	}

	c.JSON(http.StatusOK, evolution)
}

// rawOrNull keeps upstream JSON intact while mapping a missing body to an
// explicit null in the combined response.
func rawOrNull(data json.RawMessage) any {
	if data == nil {
		return nil
	}
	return data
}

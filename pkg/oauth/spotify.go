package oauth

import "os"

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyCredentialsFromEnv builds provider credentials for the Spotify Web
// API from SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET. The scope list
// covers playback history, top items, and player control.
func SpotifyCredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		AuthURL:      spotifyAuthURL,
		TokenURL:     spotifyTokenURL,
		Scopes: []string{
			"user-read-recently-played",
			"user-top-read",
			"user-read-currently-playing",
			"user-read-playback-state",
			"user-modify-playback-state",
			"streaming",
		},
	}
}

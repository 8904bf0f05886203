// Package ffmpeg wraps the ffmpeg binary for the two operations the
// pipeline needs: faststart remuxing of MP4 containers and single-frame
// extraction for thumbnails.
package ffmpeg

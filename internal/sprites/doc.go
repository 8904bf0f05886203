// Package sprites composes slide thumbnails into fixed-grid JPEG sprite
// sheets so a player can show point-of-interest previews with a single
// image request per sheet.
package sprites

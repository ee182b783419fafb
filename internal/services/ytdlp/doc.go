// Package ytdlp wraps the yt-dlp CLI: audio downloads with streamed percent
// updates, and metadata extraction (-j) used to list caption tracks.
//
// The Client shells out through an Executor so tests can replay canned
// output without the binary installed.
package ytdlp

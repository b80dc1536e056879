// Package ffmpeg splits videos into numbered PNG frames and assembles frame
// sequences back into a lossless container by shelling out to ffmpeg.
//
// Output is FFV1 in Matroska with an RGB pixel format so that the least
// significant bits written into each frame survive the round trip. The frame
// rate of the original video is read with ffprobe and carried over; audio can
// optionally be copied from the original.
package ffmpeg

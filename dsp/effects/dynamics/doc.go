// Package dynamics provides the real-time stereo dynamics processors used by
// safelistn.
//
// Included processors:
//   - Compressor: Stereo-linked feedback compressor with an asymmetric
//     attack/release peak envelope follower and linear makeup gain.
//   - HardLimiter: Stateless per-channel fold-back limiter. Each channel is
//     clamped independently, so unlike Compressor it can shift the stereo
//     image when only one side exceeds the threshold.
//
// Both satisfy StereoProcessor and are driven block-wise by ProcessBlock,
// which performs no allocation and no locking and is safe to call from an
// audio server's process callback. Block level metering is published through
// Meter using atomic stores only.
package dynamics

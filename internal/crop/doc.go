// Package crop computes and renders identity-photo crops.
//
// A Cropper asks the detection service where the subject is, sizes a crop
// rectangle around it according to a Profile, and renders that rectangle from
// the full-resolution source into an output canvas of the profile's pixel
// size. Two profiles exist: passport, which keeps a fixed aspect ratio and
// sizes the crop so the subject fills a target share of its height, and
// square, which leaves a generous margin around the subject.
//
// Detection is an enhancement. When the service is unreachable, finds no
// qualifying subject, or the passport crop cannot keep the subject within the
// accepted fill band after clamping to the image, the Cropper falls back to a
// centered crop covering most of the image at the profile's aspect ratio.
// Only an undecodable source image is an error.
package crop

package albumtag

// Version is stamped into the vendor string of newly created Vorbis
// comment blocks.
const Version = "1.0.0"

// Readablemeta turns the generation metadata that ComfyUI and WebUI Forge/A1111 embed in
// their PNG, WebP, JPEG and video outputs into a short human readable report, and exposes
// the discrete fields (prompts, seed, model, sampler settings) for downstream use.
//
// The graphapi package models ComfyUI prompt and workflow graphs, metadata detects and parses
// the two metadata dialects, report renders them, container pulls the raw blobs out of files,
// and analyzer ties one file to one report. The config package loads settings for the
// readablemeta command, and client follows a running ComfyUI server so fresh outputs can be
// reported as they are written.
package readablemeta

// Package transfer hands search results over to a download engine.
//
// A Payload is the opaque description of what to download: a magnet link,
// a .torrent URL or its bytes, or a direct download URL, plus the file
// paths the user picked. The search side builds payloads; the engine side
// only consumes them.
//
// A Dispatcher runs every hand-off inside the transfer pool, which is
// sized separately from the search pool so downloads never starve
// searches. When the payload is a .torrent URL it fetches the bytes first.
package transfer

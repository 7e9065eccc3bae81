package feed

import (
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/extensions"
)

// gofeedExtension is a local alias kept short for readability in
// feed.go's media-lookup helpers.
type gofeedExtension = ext.Extension

// mediaGroupChildren normalizes the two shapes a media RSS block can
// take in the wild: either a single <media:group> wrapping content,
// thumbnail, community, etc., or those elements sitting directly under
// the item. Grounded on the feed_rs crate's MediaObject abstraction
// used by original_source/src/rss_transcodizer/mod.rs, which gofeed has
// no built-in equivalent for — unrecognized namespaces like media: fall
// through to item.Extensions, so this package does the normalization
// gofeed itself doesn't.
func mediaGroupChildren(item *gofeed.Item) map[string][]gofeedExtension {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}
	if groups, ok := media["group"]; ok && len(groups) > 0 {
		return groups[0].Children
	}
	return media
}

package mesh

import "sync"

// MergeFeeds fans several discovery feeds into one. The merged feed closes
// once every source feed has closed.
func MergeFeeds(feeds ...DiscoveryFeed) DiscoveryFeed {
	if len(feeds) == 1 {
		return feeds[0]
	}

	out := make(chan RegistryEvent, 16)
	var wg sync.WaitGroup
	wg.Add(len(feeds))
	for _, feed := range feeds {
		go func(feed DiscoveryFeed) {
			defer wg.Done()
			for event := range feed.Events() {
				out <- event
			}
		}(feed)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	return mergedFeed{events: out}
}

type mergedFeed struct {
	events chan RegistryEvent
}

func (f mergedFeed) Events() <-chan RegistryEvent { return f.events }

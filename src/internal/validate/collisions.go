package validate

import (
	"path/filepath"
	"sort"

	"gitlab.com/simongoricar/euphony/src/internal/config"
	"gitlab.com/simongoricar/euphony/src/internal/fsutil"
)

// Collision records that the same artist/album pair was found in two
// different configured libraries - almost always a sign the same album was
// accidentally filed under two libraries rather than one.
type Collision struct {
	Artist        string
	Album         string
	FirstLibrary  string
	SecondLibrary string
}

// collisionChecker tracks which library has already claimed each
// artist/album pair. The original Rust CollisionChecker reaches for a
// HashMap<String, HashSet<AlbumEntry>> with a hand-written Eq/Hash impl on
// AlbumEntry so two entries compare equal by album name alone, ignoring
// which library recorded them - a workaround HashSet's "one value per key"
// semantics forces. A plain nested map says the same thing directly: artist
// -> album -> name of the library that claimed it first.
type collisionChecker struct {
	claims     map[string]map[string]string
	collisions []Collision
}

func newCollisionChecker() *collisionChecker {
	return &collisionChecker{claims: make(map[string]map[string]string)}
}

// scanLibrary walks one library's artist/album directory structure and
// records each album against the checker, reporting a Collision for every
// album already claimed by a previously scanned library.
func (c *collisionChecker) scanLibrary(lib config.Library) error {
	_, artistDirs, err := fsutil.ListDirContents(lib.Path)
	if err != nil {
		return err
	}

	for _, artistDir := range artistDirs {
		artist := filepath.Base(artistDir)
		if contains(lib.IgnoredDirectoriesInBase, artist) {
			continue
		}

		_, albumDirs, err := fsutil.ListDirContents(artistDir)
		if err != nil {
			return err
		}

		for _, albumDir := range albumDirs {
			c.claim(artist, filepath.Base(albumDir), lib.Name)
		}
	}

	return nil
}

func (c *collisionChecker) claim(artist, album, libraryName string) {
	albums, ok := c.claims[artist]
	if !ok {
		albums = make(map[string]string)
		c.claims[artist] = albums
	}

	if owner, claimed := albums[album]; claimed {
		c.collisions = append(c.collisions, Collision{
			Artist:        artist,
			Album:         album,
			FirstLibrary:  owner,
			SecondLibrary: libraryName,
		})
		return
	}

	albums[album] = libraryName
}

// sortedCollisions returns the checker's collisions in a deterministic
// order, for stable CLI/test output.
func sortedCollisions(collisions []Collision) []Collision {
	sorted := make([]Collision, len(collisions))
	copy(sorted, collisions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Artist != sorted[j].Artist {
			return sorted[i].Artist < sorted[j].Artist
		}
		return sorted[i].Album < sorted[j].Album
	})
	return sorted
}

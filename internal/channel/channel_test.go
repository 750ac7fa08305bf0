package channel

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHash(t *testing.T) {
	Convey("Given the default key", t, func() {
		key := DefaultKey()

		Convey("LongFast hashes to 0x08", func() {
			So(Hash("LongFast", key), ShouldEqual, uint8(0x08))
		})

		Convey("MediumSlow hashes to 0x18", func() {
			So(Hash("MediumSlow", key), ShouldEqual, uint8(0x18))
		})

		Convey("The hash does not depend on the byte order", func() {
			rev := make([]byte, len(key))
			for i := range key {
				rev[len(key)-1-i] = key[i]
			}
			So(Hash("tsaFgnoL", rev), ShouldEqual, Hash("LongFast", key))
		})

		Convey("A cleartext channel only hashes the name", func() {
			So(Hash("LongFast", nil), ShouldEqual, uint8(0x0a))
			So(Hash("", nil), ShouldEqual, uint8(0))
		})
	})
}

func TestChannel(t *testing.T) {
	Convey("Given a channel created from the default psk", t, func() {
		c, err := New("LongFast", "AQ==")
		So(err, ShouldBeNil)
		So(c.Name, ShouldEqual, "LongFast")
		So(c.Key, ShouldResemble, DefaultKey())
		So(c.Hash, ShouldEqual, uint8(0x08))
		So(c.Encrypted(), ShouldBeTrue)
		So(c.PSK(), ShouldEqual, "1PG7OiApB1nwvP+rz05pAQ==")
	})

	Convey("Given a cleartext channel", t, func() {
		c, err := New("Open", "AA==")
		So(err, ShouldBeNil)
		So(c.Encrypted(), ShouldBeFalse)
		So(c.PSK(), ShouldEqual, "AA==")
	})

	Convey("Given an empty psk", t, func() {
		_, err := New("Broken", "")
		So(errors.Cause(err), ShouldEqual, ErrEmptyPSK)
	})

	Convey("Given a key of invalid length", t, func() {
		_, err := FromKey("Broken", make([]byte, 20))
		So(errors.Cause(err), ShouldEqual, ErrUnsupportedKeyLength)
	})
}

func TestSet(t *testing.T) {
	Convey("Given a set of channels", t, func() {
		longFast, err := New("LongFast", "AQ==")
		So(err, ShouldBeNil)

		// "LongFaqs" XORs to 0x0f, the key to 0x07
		collision, err := FromKey("LongFaqs", append(make([]byte, 15), 0x07))
		So(err, ShouldBeNil)

		private, err := New("Private", "AAECAwQFBgcICQoLDA0ODw==")
		So(err, ShouldBeNil)

		s, err := NewSet(longFast, private, collision)
		So(err, ShouldBeNil)

		Convey("Candidates returns all matching channels in order", func() {
			So(collision.Hash, ShouldEqual, longFast.Hash)
			So(s.Candidates(0x08), ShouldResemble, []Channel{longFast, collision})
			So(s.Candidates(private.Hash), ShouldResemble, []Channel{private})
		})

		Convey("Candidates for an unknown hash is empty", func() {
			So(s.Candidates(0xff), ShouldBeEmpty)
		})

		Convey("Get returns the channel by name", func() {
			c, ok := s.Get("Private")
			So(ok, ShouldBeTrue)
			So(c, ShouldResemble, private)

			_, ok = s.Get("Unknown")
			So(ok, ShouldBeFalse)
		})

		Convey("All and Names return every channel", func() {
			So(s.All(), ShouldHaveLength, 3)
			So(s.Names(), ShouldResemble, []string{"LongFaqs", "LongFast", "Private"})
		})

		Convey("Duplicate names are rejected", func() {
			_, err := NewSet(longFast, longFast)
			So(errors.Cause(err), ShouldEqual, ErrDuplicateName)
		})

		Convey("Given a registry", func() {
			r := NewRegistry(s)
			So(r.Candidates(0x08), ShouldHaveLength, 2)

			Convey("Replace swaps the active set", func() {
				empty, err := NewSet()
				So(err, ShouldBeNil)

				var wg sync.WaitGroup
				for i := 0; i < 10; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						r.Candidates(0x08)
					}()
				}
				r.Replace(empty)
				wg.Wait()

				So(r.Candidates(0x08), ShouldBeEmpty)
				_, ok := r.Get("LongFast")
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a registry without set", t, func() {
		r := NewRegistry(nil)
		So(r.Candidates(0x08), ShouldBeEmpty)
	})
}

// Package docs provides API documentation text keyed by declaration name.
//
// Documentation is loaded once at startup from a YAML resource (the bundled
// apidocs.yml or a user-supplied file) and is immutable afterwards, so a
// single Set may be shared by every emission worker without locking.
//
// Entries are keyed by fully-qualified name or by short name:
//
//	apis:
//	  Beep:
//	    description: Generates simple tones on the speaker.
//	    parameters:
//	      dwFreq: The frequency of the sound, in hertz.
//	    return_value: If the function succeeds, the return value is nonzero.
package docs

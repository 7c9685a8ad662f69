package game

// MaxLives is the number of wrong guesses that loses an episode.
const MaxLives = 8

// Words is the list secret words are drawn from.
var Words = []string{
	"play", "time", "home", "mind", "work", "jump", "farm", "cake",
	"bake", "fire", "wind", "gold", "road", "love", "rock", "rain",
	"star", "fish", "desk", "news", "team", "care", "peak", "golf",
	"mesh", "ping", "dock", "lamb", "comb", "stem", "grow", "clan",
	"hint", "glad", "vile", "zone", "xray", "kids", "pony", "germ",
	"bank", "ship", "bark", "dust", "made", "sake", "corn", "pail",
	"tuck", "boil", "ramp", "vase", "blow", "chat", "drum", "flop",
	"grim", "hazy", "jolt", "keen", "lurk", "moat", "numb", "oath",
	"pace", "quit", "rude", "dope", "tail", "urge", "veto", "yarn",
	"zinc",
}

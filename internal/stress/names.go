package stress

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const emailDomain = "kingdommail.com"

var roles = []string{"User", "Admin", "Manager", "Guest", "Developer"}

var firstNames = []string{
	"Aelfric", "Aldwin", "Baldwin", "Cedric", "Edmund", "Godfrey", "Harold", "Leofric",
	"Oswald", "Wilfrid", "Adelina", "Beatrice", "Cecily", "Eleanor", "Guinevere", "Isolde",
	"Matilda", "Rohesia", "Sybil", "Yvonne", "William", "Richard", "Robert", "Hugh", "Roland",
	"Giles", "Walter", "Henry", "Thomas", "John", "Agnes", "Alice", "Elaine", "Emma", "Joan",
	"Margaret", "Marian", "Edith", "Godiva", "Maud",
}

var lastNames = []string{
	"Montague", "Capulet", "Othello", "Hamlet", "Macbeth", "Lear", "Prospero", "Oberon",
	"Puck", "Lysander", "Demetrius", "Titania", "Portia", "Shylock", "Malvolio", "Orsino",
	"Orlando", "Rosalind", "Falstaff", "Petruchio", "Ariel", "Caliban", "Polonius", "Laertes",
	"Ophelia", "Macduff", "Banquo", "Desdemona", "Cordelia", "Goneril", "Regan", "Kent",
	"Gloucester", "Albany", "Cornwall", "Feste", "Viola", "Sebastian", "Antonio", "Benvolio",
	"Mercutio", "Tybalt", "Horatio", "Fortinbras", "Bottom",
}

// Unit is the synthetic user written by one stress task. Name and role
// depend only on Index; the email embeds ID so every run writes fresh rows.
type Unit struct {
	Index int
	ID    uuid.UUID
	Name  string
	Email string
	Role  string
}

// NewUnit derives the user for index i. Last names step by 7 so that
// consecutive indexes pair different first and last names.
func NewUnit(i int, id uuid.UUID) Unit {
	first := firstNames[i%len(firstNames)]
	last := lastNames[(i*7)%len(lastNames)]

	return Unit{
		Index: i,
		ID:    id,
		Name:  first + " " + last,
		Email: fmt.Sprintf("%s.%s.%s@%s", strings.ToLower(first), strings.ToLower(last), simple(id), emailDomain),
		Role:  roles[i%len(roles)],
	}
}

// simple renders id as 32 hex digits without dashes.
func simple(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

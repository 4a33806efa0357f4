package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

// Starter bank so a fresh database can run a quiz straight away.
const seedQuestionsSQL = `
INSERT INTO questions (id, prompt, options, correct_answer, difficulty, category, points) VALUES
	('e1', 'What is 2 + 2?', '["3","4","5","22"]', '4', 'easy', 'math', 10),
	('e2', 'Which planet is known as the Red Planet?', '["Venus","Mars","Jupiter","Saturn"]', 'Mars', 'easy', 'science', 10),
	('e3', 'How many days are in a week?', '["5","6","7","8"]', '7', 'easy', 'general', 10),
	('e4', 'What color do you get by mixing blue and yellow?', '["Green","Purple","Orange","Brown"]', 'Green', 'easy', 'general', 10),
	('m1', 'What is the capital of Australia?', '["Sydney","Melbourne","Canberra","Perth"]', 'Canberra', 'medium', 'geography', 15),
	('m2', 'What is 12 * 12?', '["124","144","132","156"]', '144', 'medium', 'math', 15),
	('m3', 'Which gas do plants absorb from the air?', '["Oxygen","Nitrogen","Carbon dioxide","Helium"]', 'Carbon dioxide', 'medium', 'science', 15),
	('m4', 'Who wrote "Romeo and Juliet"?', '["Dickens","Shakespeare","Austen","Tolstoy"]', 'Shakespeare', 'medium', 'literature', 15),
	('h1', 'What is the chemical symbol for tungsten?', '["Tu","Tg","W","Wo"]', 'W', 'hard', 'science', 20),
	('h2', 'In which year did the Berlin Wall fall?', '["1987","1989","1991","1993"]', '1989', 'hard', 'history', 20),
	('h3', 'What is the derivative of ln(x)?', '["x","1/x","e^x","ln(x)/x"]', '1/x', 'hard', 'math', 20)
ON CONFLICT (id) DO NOTHING;
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, seedQuestionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DELETE FROM questions WHERE id IN ('e1','e2','e3','e4','m1','m2','m3','m4','h1','h2','h3')`)
			return err
		},
	)
}

package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	PersistScoresQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "review_persist_answers_queue",
	PersistScoresQueue:  "review_persist_scores_queue",
}

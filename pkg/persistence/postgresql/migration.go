package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_records (
				id BIGSERIAL PRIMARY KEY,
				creator_id BIGINT NOT NULL,
				creator_name VARCHAR(255) NOT NULL,
				title VARCHAR(1000) NOT NULL,
				current_state VARCHAR(200) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_records_creator_id ON workflow_records(creator_id);

			CREATE TABLE workflow_steps (
				id BIGSERIAL PRIMARY KEY,
				record_id BIGINT NOT NULL REFERENCES workflow_records(id),
				operator_id BIGINT NOT NULL,
				operator_name VARCHAR(255) NOT NULL,
				action_key VARCHAR(100) NOT NULL,
				action_name VARCHAR(100) NOT NULL,
				from_state VARCHAR(200) NOT NULL,
				next_state VARCHAR(200) NOT NULL,
				submit_data JSON NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_steps_record_id ON workflow_steps(record_id, id);
		`,
		2: `
			-- Steps are an audit trail: reject any UPDATE or DELETE.
			CREATE FUNCTION workflow_steps_append_only() RETURNS trigger AS $$
			BEGIN
				RAISE EXCEPTION 'workflow_steps is append-only';
			END;
			$$ LANGUAGE plpgsql;

			CREATE TRIGGER trg_workflow_steps_append_only
				BEFORE UPDATE OR DELETE ON workflow_steps
				FOR EACH ROW EXECUTE FUNCTION workflow_steps_append_only();
		`,
	}
}

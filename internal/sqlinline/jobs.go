package sqlinline

const QInsertBulkJob = `--sql 483120d8-95f2-44e8-8336-b0873c7fa5e2
insert into bulk_jobs (id, user_id, kind, status, total_items, processed_items, failed_items, voice_id, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, 'processing', $4::int, 0, 0, $5::uuid, now(), now())
returning created_at, updated_at;
`

const QSelectBulkJobForUser = `--sql 0f54355c-e5dd-4db5-a021-0bd4ed8febb9
select id::text, user_id::text, kind, status, total_items, processed_items, failed_items,
       error_message, voice_id::text, created_at, updated_at
from bulk_jobs
where id = $1::uuid
  and user_id = $2::uuid;
`

const QSelectBulkJob = `--sql 6fb4eeda-8cee-4aee-abda-1e30418ea73d
select id::text, user_id::text, kind, status, total_items, processed_items, failed_items,
       error_message, voice_id::text, created_at, updated_at
from bulk_jobs
where id = $1::uuid;
`

// QRecordBulkJobItem increments the counters in place. The guard keeps
// processed_items from passing total_items when a chunk is replayed.
const QRecordBulkJobItem = `--sql 1546d6e2-73c5-484e-90af-8e0a3c67b8dd
update bulk_jobs
set processed_items = processed_items + 1,
    failed_items = failed_items + case when $2::boolean then 1 else 0 end,
    updated_at = now()
where id = $1::uuid
  and processed_items < total_items
returning id::text, user_id::text, kind, status, total_items, processed_items, failed_items,
          error_message, voice_id::text, created_at, updated_at;
`

const QFinalizeBulkJob = `--sql 179de738-f333-486d-bce7-fadc080f02f1
update bulk_jobs
set status = $3::text,
    error_message = coalesce($4::text, error_message),
    updated_at = now()
where id = $1::uuid
  and user_id = $2::uuid;
`
